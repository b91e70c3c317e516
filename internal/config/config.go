package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all the configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Discord  DiscordConfig
	Osu      OsuConfig
	Frontend FrontendConfig
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// DatabaseConfig holds the database configuration. ReadURL points reads at a
// replica; when empty, reads share the primary's pool.
type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	ReadURL string `mapstructure:"readurl"`
}

// RedisConfig holds the Redis configuration.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// SessionConfig controls the session backend and the cookie it is carried in.
type SessionConfig struct {
	// Backend selects the session store: "postgres", "redis" or "memory".
	Backend      string        `mapstructure:"backend"`
	CookieName   string        `mapstructure:"cookiename"`
	CookieDomain string        `mapstructure:"cookiedomain"`
	TTL          time.Duration `mapstructure:"ttl"`
}

// DiscordConfig holds the bot credentials and the guild objects it mutates.
type DiscordConfig struct {
	BotToken        string `mapstructure:"bottoken"`
	GuildID         string `mapstructure:"guildid"`
	VerifyChannelID string `mapstructure:"verifychannelid"`
	VerifiedRoleID  string `mapstructure:"verifiedroleid"`
}

// OsuConfig holds the osu! OAuth application credentials and endpoints.
// AuthURL/TokenURL/APIURL default to the public osu! endpoints and are
// overridable for tests.
type OsuConfig struct {
	ClientID     int    `mapstructure:"clientid"`
	ClientSecret string `mapstructure:"clientsecret"`
	RedirectURL  string `mapstructure:"redirecturl"`
	AuthURL      string `mapstructure:"authurl"`
	TokenURL     string `mapstructure:"tokenurl"`
	APIURL       string `mapstructure:"apiurl"`
}

// FrontendConfig holds the public URL users are sent to with their code.
type FrontendConfig struct {
	URL string `mapstructure:"url"`
}

// Load creates a new Config object from environment variables.
func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env into the process environment so BindEnv sees file-based values.
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ godotenv could not load .env: %v", err)
	}

	// Bind structured keys to environment variables
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("database.readurl", "DATABASE_READ_URL")
	_ = viper.BindEnv("redis.url", "REDIS_URL")
	_ = viper.BindEnv("session.backend", "SESSION_BACKEND")
	_ = viper.BindEnv("session.cookiename", "SESSION_COOKIE_NAME")
	_ = viper.BindEnv("session.cookiedomain", "SESSION_COOKIE_DOMAIN")
	_ = viper.BindEnv("session.ttl", "SESSION_TTL")
	_ = viper.BindEnv("discord.bottoken", "DISCORD_BOT_TOKEN")
	_ = viper.BindEnv("discord.guildid", "DISCORD_GUILD_ID")
	_ = viper.BindEnv("discord.verifychannelid", "DISCORD_VERIFY_CHANNEL_ID")
	_ = viper.BindEnv("discord.verifiedroleid", "DISCORD_VERIFIED_ROLE_ID")
	_ = viper.BindEnv("osu.clientid", "OSU_CLIENT_ID")
	_ = viper.BindEnv("osu.clientsecret", "OSU_CLIENT_SECRET")
	_ = viper.BindEnv("osu.redirecturl", "OSU_REDIRECT_URL")
	_ = viper.BindEnv("osu.authurl", "OSU_AUTH_URL")
	_ = viper.BindEnv("osu.tokenurl", "OSU_TOKEN_URL")
	_ = viper.BindEnv("osu.apiurl", "OSU_API_URL")
	_ = viper.BindEnv("frontend.url", "FRONTEND_URL")

	if err := viper.ReadInConfig(); err != nil {
		// Proceed when the .env file is missing; env vars may carry everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("❌ Error reading config file: %s", err)
		} else {
			log.Printf("⚠️ .env file not found, relying on environment variables")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("❌ Unable to decode config into struct: %v", err)
	}

	// --- Set default values ---
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "postgres"
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "kohaku_session"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 30 * 24 * time.Hour
	}
	if cfg.Osu.AuthURL == "" {
		cfg.Osu.AuthURL = "https://osu.ppy.sh/oauth/authorize"
	}
	if cfg.Osu.TokenURL == "" {
		cfg.Osu.TokenURL = "https://osu.ppy.sh/oauth/token"
	}
	if cfg.Osu.APIURL == "" {
		cfg.Osu.APIURL = "https://osu.ppy.sh/api/v2"
	}

	log.Println("✅ Configuration loaded successfully")
	return &cfg
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/bwmarrin/discordgo"
	"github.com/kohaku-bot/kohaku/internal/config"
	"github.com/kohaku-bot/kohaku/internal/modules/user"
)

// verifyButtonID is the component custom ID of the persistent verify button.
const verifyButtonID = "kohaku:verify"

// Bot is the Discord adapter. It owns the gateway session, keeps the verify
// button alive in the configured channel, and implements user.RoleManager for
// the verification service.
type Bot struct {
	session     *discordgo.Session
	cfg         config.DiscordConfig
	frontendURL string
	service     user.Service
	logger      *slog.Logger
}

// New creates the bot without opening the gateway connection. Bind must be
// called before Start.
func New(cfg config.DiscordConfig, frontendURL string, logger *slog.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages

	return &Bot{
		session:     s,
		cfg:         cfg,
		frontendURL: frontendURL,
		logger:      logger,
	}, nil
}

// Bind attaches the verification service. Separate from New because the bot
// and the service depend on each other: the service needs the bot as its
// RoleManager, the bot needs the service for its interaction handlers.
func (b *Bot) Bind(service user.Service) {
	b.service = service
}

// Start registers the gateway handlers and opens the connection.
func (b *Bot) Start() error {
	if b.service == nil {
		return errors.New("bot: Bind must be called before Start")
	}

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(b.onMemberRemove)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

// GiveRole grants the verified role in the configured guild.
func (b *Bot) GiveRole(ctx context.Context, discordID string) error {
	return b.session.GuildMemberRoleAdd(b.cfg.GuildID, discordID, b.cfg.VerifiedRoleID, discordgo.WithContext(ctx))
}

// RemoveRole removes the verified role in the configured guild.
func (b *Bot) RemoveRole(ctx context.Context, discordID string) error {
	return b.session.GuildMemberRoleRemove(b.cfg.GuildID, discordID, b.cfg.VerifiedRoleID, discordgo.WithContext(ctx))
}

// onReady makes sure the verify channel carries the persistent button.
func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	b.logger.Info("discord gateway ready", "guild_id", b.cfg.GuildID)

	if err := b.ensureVerifyButton(s); err != nil {
		b.logger.Error("verify button setup failed", "channel_id", b.cfg.VerifyChannelID, "error", err)
	}
}

// ensureVerifyButton reuses an existing button message when one is present,
// posting a fresh one otherwise. Restarting the bot must not litter the
// channel with duplicate buttons.
func (b *Bot) ensureVerifyButton(s *discordgo.Session) error {
	msgs, err := s.ChannelMessages(b.cfg.VerifyChannelID, 50, "", "", "")
	if err != nil {
		return fmt.Errorf("list channel messages: %w", err)
	}
	for _, m := range msgs {
		if m.Author != nil && m.Author.ID == s.State.User.ID && len(m.Components) > 0 {
			b.logger.Info("reusing existing verify button", "message_id", m.ID)
			return nil
		}
	}

	_, err = s.ChannelMessageSendComplex(b.cfg.VerifyChannelID, &discordgo.MessageSend{
		Content: "Hacé click en el botón para vincular tu cuenta de osu!",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Verificarse",
						Style:    discordgo.PrimaryButton,
						CustomID: verifyButtonID,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send verify button: %w", err)
	}

	b.logger.Info("verify button posted", "channel_id", b.cfg.VerifyChannelID)
	return nil
}

// onInteraction handles verify button presses with an ephemeral reply carrying
// the user's personal verification link.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	if i.MessageComponentData().CustomID != verifyButtonID {
		return
	}
	if i.Member == nil || i.Member.User == nil {
		return
	}

	discordID := i.Member.User.ID
	username := i.Member.User.Username

	ctx := context.Background()
	u, alreadyVerified, err := b.service.IssueCode(ctx, discordID, username)
	if err != nil {
		b.logger.Error("issue code from button failed", "discord_id", discordID, "error", err)
		b.respondEphemeral(s, i, "Algo salió mal, intentá de nuevo más tarde.")
		return
	}

	if alreadyVerified {
		b.respondEphemeral(s, i, "Tu cuenta ya está verificada.")
		return
	}

	b.respondEphemeral(s, i, "Entrá acá para verificar tu cuenta: "+b.verifyLink(*u.VerificationCode))
}

// onMemberRemove unlinks users who leave the guild. The role is gone with the
// membership, so revocation skips the role call.
func (b *Bot) onMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.GuildID != b.cfg.GuildID || m.User == nil {
		return
	}

	ctx := context.Background()
	_, err := b.service.Deauthenticate(ctx, m.User.ID, "", false)
	if err != nil {
		// Unknown or unverified leavers have nothing to unlink.
		if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrNotVerified) {
			return
		}
		b.logger.Error("deauth on member remove failed", "discord_id", m.User.ID, "error", err)
		return
	}

	b.logger.Info("member left, account unlinked", "discord_id", m.User.ID)
}

func (b *Bot) verifyLink(code string) string {
	return b.frontendURL + "?kohaku_code=" + url.QueryEscape(code)
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("interaction response failed", "error", err)
	}
}

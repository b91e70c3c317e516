package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authBody struct {
	KohakuCode string `json:"kohaku_code" validate:"required"`
	OsuCode    string `json:"osu_code" validate:"required"`
}

func TestValidateStructPasses(t *testing.T) {
	assert.NoError(t, ValidateStruct(authBody{KohakuCode: "a", OsuCode: "b"}))
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(authBody{})
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok)

	fields, ok := verr.ProblemContext().(map[string]any)["fields"].(FieldErrors)
	require.True(t, ok)
	assert.Contains(t, fields, "kohaku_code")
	assert.Contains(t, fields, "osu_code")
	assert.Equal(t, 400, verr.ProblemStatus())
}

package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/botflow/internal/presentation/tui"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer(t *testing.T) {
	out, err := tui.PlainRenderer("**hello**")
	require.NoError(t, err)
	assert.Equal(t, "**hello**", out)
}

func TestNewRenderer(t *testing.T) {
	out, err := tui.NewRenderer()("**hello**")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestSpeaker_Plain(t *testing.T) {
	assert.Equal(t, "bot> ", tui.Speaker(domain.RoleBot, false))
	assert.Equal(t, "you> ", tui.Speaker(domain.RoleUser, false))
	assert.Contains(t, tui.Speaker(domain.RoleUser, true), "you> ")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), `|_.__/`)
}

package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevNoColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = out, errOut, true
	t.Cleanup(func() {
		Stdout, Stderr, color.NoColor = prevOut, prevErr, prevNoColor
	})
	return out, errOut
}

func TestError(t *testing.T) {
	t.Run("single suggestion", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("config invalid", "intake_chat_id is required", []string{"Set intake_chat_id in vinehill.yml"})
		require.EqualError(t, err, "config invalid")
		assert.Equal(t, "config invalid\n\nintake_chat_id is required\n\nSet intake_chat_id in vinehill.yml\n", errOut.String())
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Redis connection failed", "dial tcp: refused", []string{"Start Redis", "Set REDIS_URL"})
		require.EqualError(t, err, "Redis connection failed")
		assert.Contains(t, errOut.String(), "Either:\n  1. Start Redis\n  2. Set REDIS_URL\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)
	err := ErrorWithContext("Redis connection failed", "", map[string]string{
		"URL":      "redis://localhost:6379",
		"Instance": "default",
	}, nil)

	require.EqualError(t, err, "Redis connection failed")
	assert.Equal(t, "Redis connection failed\n\n\n  Instance: default\n  URL: redis://localhost:6379\n", errOut.String())
}

func TestSuccessAndWarning(t *testing.T) {
	out, _ := capture(t)
	Success("Saved\n")
	Success("✓ Already prefixed\n")
	Warning("Careful\n")
	Step("Connecting\n")

	assert.Equal(t, "✓ Saved\n✓ Already prefixed\n⚠️  Careful\n→ Connecting\n", out.String())
}

package commands

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vinehill/internal/printer"
	"github.com/dyluth/vinehill/pkg/journal"
)

// run executes the real root command against a config path that does not exist.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, filepath.Join(t.TempDir(), "missing.yml"), args...)
}

// runWithConfig executes the real root command and returns stdout.
// Package-level flag variables are reset first since cobra binds them globally.
func runWithConfig(t *testing.T, cfgFile string, args ...string) (string, error) {
	t.Helper()

	classifySource, classifyBrand = "", ""
	historyOutput, historySince, historyUntil, historyCategory, historyMatch = "table", "", "", "", ""
	journalRedisURL, journalInstance = "", ""

	prevErr, prevNoColor := printer.Stderr, color.NoColor
	printer.Stderr, color.NoColor = io.Discard, true
	t.Cleanup(func() { printer.Stderr, color.NoColor = prevErr, prevNoColor })

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(append([]string{"--config", cfgFile}, args...))
	err := Execute()
	return out.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, err := run(t)
	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "vinehill")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, err := run(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "classify", "history", "watch"} {
		assert.True(t, names[want], want)
	}
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify", "--brand", "VINEHILL", "Show_Name.S01E02.720p.mkv", "random.bin")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "CATEGORY")
	assert.Contains(t, lines[1], "tvseries")
	assert.Contains(t, lines[1], "Show Name S01E02 720p VINEHILL")
	assert.Contains(t, lines[2], "movies")
	assert.Contains(t, lines[2], "random.bin VINEHILL")
}

func TestClassifyCommand_UsesConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "vinehill.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`version: "1.0"
bot:
  username: "vinehill_bot"
intake_chat_id: -1001
brand_suffix: "ACME"
keywords:
  music: ["tune"]
categories:
  - id: music
    channel_id: -3001
`), 0644))

	out, err := runWithConfig(t, cfgFile, "classify", "my.tune")
	require.NoError(t, err)

	assert.Contains(t, out, "music")
	assert.Contains(t, out, "my.tune ACME")
}

func TestClassifyCommand_NeedsBrand(t *testing.T) {
	_, err := run(t, "classify", "random.bin")
	require.Error(t, err)
	assert.Equal(t, "no brand suffix", err.Error())
}

func seedJournal(t *testing.T) (string, *journal.Event) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	jc, err := journal.NewClient(&redis.Options{Addr: mr.Addr()}, "cli-test")
	require.NoError(t, err)
	defer jc.Close()

	event := &journal.Event{
		ID:        uuid.New().String(),
		Category:  "movies",
		Name:      "Movie Title (2011) 1080p VINEHILL",
		FileRef:   "ref",
		AddedAtMs: time.Now().Add(-time.Minute).UnixMilli(),
	}
	require.NoError(t, jc.RecordEvent(context.Background(), event))
	return "redis://" + mr.Addr(), event
}

func TestHistoryCommand(t *testing.T) {
	url, event := seedJournal(t)

	t.Run("table", func(t *testing.T) {
		out, err := run(t, "history", "--redis-url", url, "--instance", "cli-test", "--since", "1h")
		require.NoError(t, err)
		assert.Contains(t, out, "Movie Title (2011) 1080p VINEHILL")
		assert.Contains(t, out, "1 event found")
	})

	t.Run("jsonl with category filter", func(t *testing.T) {
		out, err := run(t, "history", "--redis-url", url, "-i", "cli-test", "-o", "jsonl", "--category", "music")
		require.NoError(t, err)
		assert.Empty(t, strings.TrimSpace(out))
	})

	t.Run("single event", func(t *testing.T) {
		out, err := run(t, "history", "--redis-url", url, "-i", "cli-test", event.ID)
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "Movie Title (2011) 1080p VINEHILL"`)
	})

	t.Run("single event by prefix", func(t *testing.T) {
		out, err := run(t, "history", "--redis-url", url, "-i", "cli-test", event.ID[:8])
		require.NoError(t, err)
		assert.Contains(t, out, event.ID)
	})

	t.Run("prefix too short", func(t *testing.T) {
		_, err := run(t, "history", "--redis-url", url, "-i", "cli-test", event.ID[:3])
		require.Error(t, err)
		assert.Equal(t, "invalid event ID", err.Error())
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := run(t, "history", "--redis-url", url, "-i", "cli-test", uuid.New().String())
		require.Error(t, err)
		assert.Equal(t, "event not found", err.Error())
	})

	t.Run("bad range", func(t *testing.T) {
		_, err := run(t, "history", "--redis-url", url, "--since", "1h", "--until", "2h")
		require.Error(t, err)
		assert.Equal(t, "invalid time range", err.Error())
	})

	t.Run("bad category", func(t *testing.T) {
		_, err := run(t, "history", "--redis-url", url, "--category", "books")
		require.Error(t, err)
		assert.Equal(t, "invalid category", err.Error())
	})
}

func TestHistoryCommand_NoJournal(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	_, err := run(t, "history")
	require.Error(t, err)
	assert.Equal(t, "no journal configured", err.Error())
}

func TestServeCommand_MissingConfig(t *testing.T) {
	_, err := run(t, "serve")
	require.Error(t, err)
	assert.Equal(t, "failed to load configuration", err.Error())
}

func TestLinkUsername(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		reported   string
		want       string
	}{
		{"matching", "vinehill_bot", "vinehill_bot", "vinehill_bot"},
		{"case differs", "VineHill_Bot", "vinehill_bot", "vinehill_bot"},
		{"reported wins over stale config", "old_bot", "vinehill_bot", "vinehill_bot"},
		{"nothing reported", "@vinehill_bot", "", "vinehill_bot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, linkUsername(tt.configured, tt.reported))
		})
	}
}

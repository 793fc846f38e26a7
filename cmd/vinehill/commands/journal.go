package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/vinehill/internal/config"
	"github.com/dyluth/vinehill/internal/printer"
	"github.com/dyluth/vinehill/pkg/journal"
)

var (
	journalRedisURL string
	journalInstance string
)

// addJournalFlags registers the flags shared by commands that read the journal.
func addJournalFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&journalRedisURL, "redis-url", "", "Redis URL (default: REDIS_URL, then redis.url from the config file)")
	cmd.Flags().StringVarP(&journalInstance, "instance", "i", "", "Journal instance name (default: redis.instance from the config file, then \"default\")")
}

// journalSettings resolves the Redis URL and instance from flags, environment
// and the config file, in that order. The config file is optional here.
func journalSettings() (string, string) {
	url, instance := journalRedisURL, journalInstance
	if url == "" {
		url = os.Getenv("REDIS_URL")
	}
	if url == "" || instance == "" {
		if cfg, err := config.Load(configPath); err == nil {
			if url == "" {
				url = cfg.RedisURL()
			}
			if instance == "" {
				instance = cfg.RedisInstance()
			}
		}
	}
	if instance == "" {
		instance = "default"
	}
	return url, instance
}

// openJournal connects to the journal for a read-only CLI command.
func openJournal(ctx context.Context) (*journal.Client, error) {
	url, instance := journalSettings()
	if url == "" {
		return nil, printer.Error(
			"no journal configured",
			"No Redis URL was given and none is configured.",
			[]string{
				"Pass it explicitly:\n  vinehill history --redis-url redis://localhost:6379",
				"Set REDIS_URL, or redis.url in vinehill.yml",
			},
		)
	}
	return connectJournal(ctx, url, instance)
}

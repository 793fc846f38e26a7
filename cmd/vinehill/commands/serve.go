package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/vinehill/internal/access"
	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/dyluth/vinehill/internal/classify"
	"github.com/dyluth/vinehill/internal/config"
	"github.com/dyluth/vinehill/internal/deeplink"
	"github.com/dyluth/vinehill/internal/engine"
	"github.com/dyluth/vinehill/internal/health"
	"github.com/dyluth/vinehill/internal/printer"
	"github.com/dyluth/vinehill/internal/publisher"
	"github.com/dyluth/vinehill/internal/telegram"
	"github.com/dyluth/vinehill/pkg/journal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long: `Run the bot until interrupted.

On startup every configured category directory is published once, so each
channel shows its directory even before the first upload. The bot token is
read from VINEHILL_BOT_TOKEN. REDIS_URL, when set, overrides redis.url and
enables the catalog journal and persistent directory state.

Examples:
  VINEHILL_BOT_TOKEN=123:abc vinehill serve
  vinehill serve --config /etc/vinehill/vinehill.yml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.Error(
			"failed to load configuration",
			err.Error(),
			[]string{fmt.Sprintf("Check %s against the documented fields", configPath)},
		)
	}

	if cfg.Bot.Token == "" {
		return printer.Error(
			"bot token missing",
			"VINEHILL_BOT_TOKEN is not set.",
			[]string{"Export the token issued by @BotFather:\n  export VINEHILL_BOT_TOKEN=123456:ABC..."},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

// serve wires every component and blocks until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	log.Printf("[INFO] Vinehill starting (categories: %v)", cfg.CategoryIDs())

	client, username, err := telegram.NewClient(cfg.Bot.Token, cfg.Bot.RequestsPerSecond)
	if err != nil {
		return printer.Error("Telegram login failed", err.Error(), []string{"Check VINEHILL_BOT_TOKEN"})
	}
	linkName := linkUsername(cfg.Bot.Username, username)

	var (
		store    publisher.StateStore
		recorder engine.Recorder
		jc       *journal.Client
	)
	if url := cfg.RedisURL(); url != "" {
		jc, err = connectJournal(ctx, url, cfg.RedisInstance())
		if err != nil {
			return err
		}
		defer jc.Close()
		store, recorder = jc, jc
		log.Printf("[INFO] Journal enabled (instance: %s)", cfg.RedisInstance())
	}

	cat := catalog.New(cfg.CategoryIDs())
	links := deeplink.NewBuilder(linkName)

	channels := make([]publisher.Channel, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		channels = append(channels, publisher.Channel{Category: c.ID, Title: c.Title, ChatID: c.ChannelID})
	}

	pub := publisher.New(client, store, cat, links, channels, publisher.Options{
		MaxAttempts: cfg.Publish.MaxAttempts,
		RetryUnit:   cfg.Publish.RetryUnit,
	})

	eng := engine.New(engine.Deps{
		Classifier: classify.New(cfg.BrandSuffix, cfg.ClassifierKeywords()),
		Catalog:    cat,
		Publisher:  pub,
		Gate:       access.NewGate(client, cfg.RequiredGroups),
		Links:      links,
		Responder:  client,
		Recorder:   recorder,
	})

	if port := *cfg.Health.Port; port != 0 {
		hs := health.NewServer(port)
		if jc != nil {
			hs.AddCheck("redis", jc.Ping)
		}
		if err := hs.Start(); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := hs.Shutdown(shutdownCtx); err != nil {
				log.Printf("[ERROR] Health server shutdown: %v", err)
			}
		}()
	}

	pub.SyncAll(ctx)

	return telegram.NewBot(client, eng, cfg.IntakeChatID).Run(ctx)
}

// connectJournal opens and pings the Redis journal.
func connectJournal(ctx context.Context, url, instance string) (*journal.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, printer.Error(
			"invalid Redis URL",
			fmt.Sprintf("Could not parse %q: %v", url, err),
			[]string{"Use the form redis://host:6379/0"},
		)
	}

	jc, err := journal.NewClient(opts, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := jc.Ping(pingCtx); err != nil {
		jc.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{"URL": url, "Instance": instance},
			[]string{"Start Redis, or unset REDIS_URL and redis.url to run without a journal"},
		)
	}
	return jc, nil
}

// linkUsername picks the bot name for t.me links. Telegram's own answer wins
// over the configured value, since links to any other bot are dead.
func linkUsername(configured, reported string) string {
	configured = strings.TrimPrefix(configured, "@")
	if reported == "" {
		return configured
	}
	if !strings.EqualFold(configured, reported) {
		log.Printf("[WARN] bot.username is %q but the token belongs to @%s; links will use @%s",
			configured, reported, reported)
	}
	return reported
}

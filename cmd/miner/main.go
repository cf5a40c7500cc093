package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/api"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/config"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/embed"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/fetch"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/orchestrator"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/storage/sqlite"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
)

var (
	// Version is stamped at build time (ldflags), mirroring the teacher's
	// cmd/bd version var.
	Version = "dev"

	rootCtx    context.Context
	rootCancel context.CancelFunc

	configPath string

	logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
)

func init() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	telemetry.SetLogger(logger)
}

var rootCmd = &cobra.Command{
	Use:   "painminer",
	Short: "painminer - scheduled Reddit/HN pain-point mining pipeline",
	Long:  `Harvests Reddit and Hacker News discussions, detects pain points, clusters them, synthesizes product concepts, tracks trends, and serves a read API.`,
}

func main() {
	defer rootCancel()
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.AddCommand(serveCmd, triggerCmd, migrateCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("painminer version", Version)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		store, err := sqlite.Open(rootCtx, cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()
		fmt.Println("schema up to date at", cfg.DatabasePath)
		return nil
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <phase>",
	Short: "run a single pipeline phase once and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		orch, store, err := buildOrchestrator(rootCtx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := orch.RunPhase(rootCtx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d\n", args[0], count)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the cron-driven pipeline and the Read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		orch, store, err := buildOrchestrator(rootCtx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var mirror *sqlite.MySQLMirror
		if cfg.MySQLMirrorDSN != "" {
			mirror, err = sqlite.OpenMySQLMirror(rootCtx, cfg.MySQLMirrorDSN)
			if err != nil {
				return fmt.Errorf("open mysql mirror: %w", err)
			}
			defer mirror.Close()
		}
		instance, _ := os.Hostname()

		server := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: api.NewHandler(store, orch),
		}
		go func() {
			logger.Info("read API listening", "addr", cfg.ListenAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("api server", "error", err)
			}
		}()

		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()

		runTick(rootCtx, orch, store, mirror, instance, cfg.TickDeadline)
		for {
			select {
			case <-rootCtx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case <-ticker.C:
				runTick(rootCtx, orch, store, mirror, instance, cfg.TickDeadline)
			}
		}
	},
}

func runTick(ctx context.Context, orch *orchestrator.Orchestrator, store *sqlite.Store, mirror *sqlite.MySQLMirror, instance string, deadline time.Duration) {
	tickCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result, ok, err := orch.Tick(tickCtx)
	if err != nil {
		logger.Error("tick error", "error", err)
		return
	}
	if !ok {
		logger.Info("tick skipped: another tick already in progress")
		return
	}
	logger.Info("tick complete",
		"cron_count", result.CronCount, "posts", result.PostsFetched, "comments", result.CommentsFetched,
		"accepted", result.Accepted, "synthesized", result.Synthesized, "alerts", result.AlertsRaised)

	if mirror == nil {
		return
	}
	stats, err := store.Stats(tickCtx)
	if err != nil {
		logger.Warn("mirror stats: read stats", "error", err)
		return
	}
	if err := mirror.MirrorStats(tickCtx, instance, stats); err != nil {
		logger.Warn("mirror stats", "error", err)
	}
}

// buildOrchestrator wires every dependency the orchestrator needs: storage,
// LLM client, fetchers, embedder, and the domain-data YAML files loaded for
// C11/C12. The watched-subreddit list is derived from the union of the
// geo regions' and competitor verticals' subreddits, since no dedicated
// subreddit-list config exists (see DESIGN.md).
func buildOrchestrator(ctx context.Context, cfg config.Config) (*orchestrator.Orchestrator, *sqlite.Store, error) {
	store, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	llmClient, err := llm.New(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("build llm client: %w", err)
	}

	fetchClient := fetch.New(cfg.RedditRateMS, cfg.HNRateMS)
	embedClient := embed.New(cfg.EmbeddingEndpoint, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)

	geoData, err := config.LoadGeoData(cfg.GeoDataPath)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load geo data: %w", err)
	}
	competitorVerticals, err := config.LoadCompetitorData(cfg.CompetitorDataPath)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load competitor data: %w", err)
	}

	subreddits := watchedSubreddits(geoData, competitorVerticals)

	orch := orchestrator.New(store, llmClient, fetchClient, embedClient, geoData, competitorVerticals, subreddits, cfg)
	return orch, store, nil
}

func watchedSubreddits(geoData []config.GeoRegionData, verticals []config.CompetitorVertical) []string {
	seen := make(map[string]bool)
	var out []string
	for _, region := range geoData {
		for _, sub := range region.Subreddits {
			if !seen[sub] {
				seen[sub] = true
				out = append(out, sub)
			}
		}
	}
	for _, v := range verticals {
		for _, sub := range v.Subreddits {
			if !seen[sub] {
				seen[sub] = true
				out = append(out, sub)
			}
		}
	}
	return out
}

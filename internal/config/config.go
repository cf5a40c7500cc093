// Package config loads the pipeline's tunables from defaults, config.yaml,
// and environment variables, the way the teacher layers config.yaml over
// SQLite-backed settings (internal/config/yaml_config.go) -- here all
// settings are "yaml-only" since there is no per-repo SQLite config split.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every enumerated constant from spec §6 plus connection info.
type Config struct {
	// Storage
	DatabasePath string `mapstructure:"database_path"`
	MySQLMirrorDSN string `mapstructure:"mysql_mirror_dsn"`

	// HTTP API
	ListenAddr string `mapstructure:"listen_addr"`

	// LLM
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	AnthropicModel  string `mapstructure:"anthropic_model"`
	EmbeddingModel  string `mapstructure:"embedding_model"`
	EmbeddingAPIKey string `mapstructure:"embedding_api_key"`
	EmbeddingEndpoint string `mapstructure:"embedding_endpoint"`

	// §6 enumerated pipeline constants
	BinaryFilterBatch int     `mapstructure:"binary_filter_batch"`
	EmbedBatch        int     `mapstructure:"embed_batch"`
	ClusterThreshold  float64 `mapstructure:"cluster_threshold"`
	MergeThreshold    float64 `mapstructure:"merge_threshold"`
	SynthBatch        int     `mapstructure:"synth_batch"`
	SynthMemberFloor  int     `mapstructure:"synth_member_floor"`
	SynthGrowth       float64 `mapstructure:"synth_growth"`
	RedditRateMS      int     `mapstructure:"reddit_rate_ms"`
	HNRateMS          int     `mapstructure:"hn_rate_ms"`
	CommentDepthMax   int     `mapstructure:"comment_depth_max"`

	// Cron modulos
	CompetitorModulo int `mapstructure:"competitor_modulo"`
	MergeModulo      int `mapstructure:"merge_modulo"`
	MarketModulo     int `mapstructure:"market_modulo"`
	FeaturesModulo   int `mapstructure:"features_modulo"`

	// Concurrency budgets (spec §5)
	MaxConcurrentReddit int `mapstructure:"max_concurrent_reddit"`
	MaxConcurrentLLM    int `mapstructure:"max_concurrent_llm"`

	// Orchestration
	TickInterval time.Duration `mapstructure:"tick_interval"`
	TickDeadline time.Duration `mapstructure:"tick_deadline"`

	// Paths to external domain-data YAML files (expansion, §4.11/§4.12)
	GeoDataPath        string `mapstructure:"geo_data_path"`
	CompetitorDataPath string `mapstructure:"competitor_data_path"`

	UserAgent string `mapstructure:"user_agent"`
}

// Default returns the config with every literal default from spec §6.
func Default() Config {
	return Config{
		DatabasePath:        "painminer.db",
		ListenAddr:          ":8080",
		AnthropicModel:      "claude-haiku-4-5",
		EmbeddingModel:      "voyage-3",
		EmbeddingEndpoint:   "https://api.voyageai.com/v1/embeddings",
		BinaryFilterBatch:   200,
		EmbedBatch:          20,
		ClusterThreshold:    0.65,
		MergeThreshold:      0.85,
		SynthBatch:          10,
		SynthMemberFloor:    5,
		SynthGrowth:         0.10,
		RedditRateMS:        300,
		HNRateMS:            200,
		CommentDepthMax:     5,
		CompetitorModulo:    3,
		MergeModulo:         6,
		MarketModulo:        2,
		FeaturesModulo:      2,
		MaxConcurrentReddit: 3,
		MaxConcurrentLLM:    8,
		TickInterval:        15 * time.Minute,
		TickDeadline:        10 * time.Minute,
		GeoDataPath:         "config/geodata.yaml",
		CompetitorDataPath:  "config/competitors.yaml",
		UserAgent:           "painminer/1.0 (+https://github.com/anton-mundy-ai/reddit-pain-finder-sub000)",
	}
}

// Load reads defaults, then an optional config.yaml at configPath, then
// PAINMINER_-prefixed environment variables, in that precedence order.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PAINMINER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
				return cfg, fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("anthropic_api_key", cfg.AnthropicAPIKey)
	v.SetDefault("mysql_mirror_dsn", cfg.MySQLMirrorDSN)
	v.SetDefault("anthropic_model", cfg.AnthropicModel)
	v.SetDefault("embedding_model", cfg.EmbeddingModel)
	v.SetDefault("embedding_api_key", cfg.EmbeddingAPIKey)
	v.SetDefault("embedding_endpoint", cfg.EmbeddingEndpoint)
	v.SetDefault("binary_filter_batch", cfg.BinaryFilterBatch)
	v.SetDefault("embed_batch", cfg.EmbedBatch)
	v.SetDefault("cluster_threshold", cfg.ClusterThreshold)
	v.SetDefault("merge_threshold", cfg.MergeThreshold)
	v.SetDefault("synth_batch", cfg.SynthBatch)
	v.SetDefault("synth_member_floor", cfg.SynthMemberFloor)
	v.SetDefault("synth_growth", cfg.SynthGrowth)
	v.SetDefault("reddit_rate_ms", cfg.RedditRateMS)
	v.SetDefault("hn_rate_ms", cfg.HNRateMS)
	v.SetDefault("comment_depth_max", cfg.CommentDepthMax)
	v.SetDefault("competitor_modulo", cfg.CompetitorModulo)
	v.SetDefault("merge_modulo", cfg.MergeModulo)
	v.SetDefault("market_modulo", cfg.MarketModulo)
	v.SetDefault("features_modulo", cfg.FeaturesModulo)
	v.SetDefault("max_concurrent_reddit", cfg.MaxConcurrentReddit)
	v.SetDefault("max_concurrent_llm", cfg.MaxConcurrentLLM)
	v.SetDefault("tick_interval", cfg.TickInterval)
	v.SetDefault("tick_deadline", cfg.TickDeadline)
	v.SetDefault("geo_data_path", cfg.GeoDataPath)
	v.SetDefault("competitor_data_path", cfg.CompetitorDataPath)
	v.SetDefault("user_agent", cfg.UserAgent)
}

// CommentLimitFor implements the §4.1 comment-limit schedule.
func CommentLimitFor(score, numComments int) int {
	switch {
	case score >= 100 || numComments >= 100:
		return 500
	case score >= 50 || numComments >= 50:
		return 300
	case score >= 10 || numComments >= 20:
		return 200
	default:
		return 100
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the slr-assistant CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-assistant/internal/funnel"
	"github.com/pdiddy/slr-assistant/internal/logging"
	"github.com/pdiddy/slr-assistant/internal/querystore"
	"github.com/pdiddy/slr-assistant/internal/secrets"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// logger is built in PersistentPreRunE once flags are parsed.
var logger = zap.NewNop()

// rootCmd is the base command for the slr-assistant CLI.
var rootCmd = &cobra.Command{
	Use:   "slr-assistant",
	Short: "Systematic literature review assistant",
	Long: `slr-assistant supports the early stages of a systematic literature review.

It authors search queries with the help of an external query-authoring
service, keeps the saved queries, derives the PRISMA funnel for each one,
and walks through duplicate review and simulated document screening.
The serve command exposes the same operations over a JSON HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.NewCLILogger(viper.GetBool("debug"))
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("loaded secrets", zap.Strings("keys", s.Keys()))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./slr-assistant.yaml or ~/.config/slr-assistant/slr-assistant.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("slr-assistant")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "slr-assistant"))
		}
	}

	setDefaults()

	viper.SetEnvPrefix("SLR_ASSISTANT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("authoring.base_url", "http://localhost:8000")
	viper.SetDefault("authoring.timeout", "60s")
	viper.SetDefault("authoring.user_agent", "slr-assistant/"+version)
	viper.SetDefault("authoring.max_retries", 3)
	viper.SetDefault("authoring.api_key", "")
	viper.SetDefault("authoring.estimator", string(types.EstimatorService))
	viper.SetDefault("authoring.openalex_email", "")
	viper.SetDefault("authoring.collect_tick", "50ms")

	viper.SetDefault("store.backend", string(types.StoreFile))
	viper.SetDefault("store.path", "")

	viper.SetDefault("funnel.duplicate_rate", funnel.DefaultDuplicateRate)
	viper.SetDefault("funnel.full_match_rate", funnel.DefaultFullMatchRate)

	viper.SetDefault("screening.delay", "3s")
	viper.SetDefault("screening.seed", 0)

	viper.SetDefault("server.addr", "127.0.0.1:8080")
	viper.SetDefault("server.request_timeout", "60s")
}

// loadConfig decodes the merged viper settings and fills credentials from
// .secrets/ where the configuration leaves them empty.
func loadConfig() (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.Authoring.APIKey = loadedSecrets.Get(secrets.AuthoringAPIKey, cfg.Authoring.APIKey)
	cfg.Authoring.OpenAlexEmail = loadedSecrets.Get(secrets.OpenAlexEmail, cfg.Authoring.OpenAlexEmail)
	return cfg, nil
}

// openStore opens the configured query store. The caller closes it.
func openStore(ctx context.Context, cfg types.StoreConfig) (*querystore.Store, error) {
	backend, err := querystore.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return querystore.Open(ctx, backend, logger), nil
}

// findQuery resolves a saved query by ID or, failing that, by exact name.
func findQuery(store *querystore.Store, ref string) (types.SavedQuery, error) {
	if q, ok := store.Find(ref); ok {
		return q, nil
	}
	var matches []types.SavedQuery
	for _, q := range store.List() {
		if q.Name == ref {
			matches = append(matches, q)
		}
	}
	switch len(matches) {
	case 0:
		return types.SavedQuery{}, fmt.Errorf("no saved query with id or name %q", ref)
	case 1:
		return matches[0], nil
	default:
		return types.SavedQuery{}, fmt.Errorf("%d saved queries are named %q: use the id", len(matches), ref)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

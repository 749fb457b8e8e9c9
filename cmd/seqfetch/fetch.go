// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/seqfetch/internal/accession"
	"github.com/pdiddy/seqfetch/internal/entrez"
	"github.com/pdiddy/seqfetch/internal/fetch"
	"github.com/pdiddy/seqfetch/internal/logging"
	"github.com/pdiddy/seqfetch/internal/metrics"
	"github.com/pdiddy/seqfetch/internal/secrets"
	"github.com/pdiddy/seqfetch/pkg/types"
)

const (
	secretsDir       = ".secrets/"
	defaultUserAgent = "seqfetch/0.1"
)

func init() {
	f := rootCmd.Flags()
	f.StringP("input", "i", "", "input file containing one accession ID per line")
	f.StringP("output", "o", "", "output FASTA file (overwritten)")
	f.String("email", "", "email address for NCBI services (required; or SEQFETCH_EMAIL, .secrets/ncbi-email)")
	f.String("api-key", "", "NCBI API key (required; or SEQFETCH_API_KEY, .secrets/ncbi-api-key)")
	f.String("summary", "", "write a YAML run summary to this file")
	f.String("metrics-file", "", "write Prometheus textfile metrics to this file")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", string(logging.FormatAuto), "log format: auto, console, json")

	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("output")

	_ = viper.BindPFlag("email", f.Lookup("email"))
	_ = viper.BindPFlag("api_key", f.Lookup("api-key"))
}

func runFetch(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	log, err := logging.New(logging.Config{
		Level:  level,
		Format: logging.Format(format),
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd, log)
	if err != nil {
		return err
	}

	// The input is read before the output is created or any request is made.
	ids, err := accession.Load(cfg.InputPath)
	if err != nil {
		if errors.Is(err, accession.ErrInputNotFound) {
			log.Error().Str("input", cfg.InputPath).Msg("input file not found")
		}
		return err
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	client := entrez.NewClient(&http.Client{Timeout: cfg.Entrez.Timeout}, cfg.Entrez)
	rec := metrics.New()
	fetcher := fetch.New(client, cfg.Fetch, fetch.WithLogger(log), fetch.WithMetrics(rec))

	sum, runErr := fetcher.Run(cmd.Context(), ids, out)
	sum.Output = cfg.OutputPath
	closeErr := out.Close()

	if path, _ := cmd.Flags().GetString("summary"); path != "" {
		if err := sum.WriteYAML(path); err != nil {
			log.Error().Err(err).Msg("could not write run summary")
		}
	}
	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		if err := rec.WriteTextfile(path); err != nil {
			log.Error().Err(err).Msg("could not write metrics")
		}
	}

	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing output file: %w", closeErr)
	}

	log.Info().
		Str("run_id", sum.RunID).
		Str("output", cfg.OutputPath).
		Bool("complete", sum.Complete()).
		Msg("download complete")
	return nil
}

// resolveConfig merges flags, environment, config file, and .secrets/ into
// a RunConfig. Email and API key must be set by one of them. Fetch tuning is
// left unset where not configured; fetch.New fills the defaults.
func resolveConfig(cmd *cobra.Command, log zerolog.Logger) (types.RunConfig, error) {
	s, err := secrets.Load(secretsDir, log)
	if err != nil {
		return types.RunConfig{}, err
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")

	cfg := types.RunConfig{
		InputPath:  input,
		OutputPath: output,
		Entrez: types.EntrezConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("timeout"),
				UserAgent: defaultUserAgent,
			},
			BaseURL: viper.GetString("base_url"),
			Email:   s.Or(secrets.KeyEmail, viper.GetString("email")),
			APIKey:  s.Or(secrets.KeyAPIKey, viper.GetString("api_key")),
		}.WithDefaults(),
		Fetch: types.FetchConfig{
			BatchSize:           viper.GetInt("batch_size"),
			PageSize:            viper.GetInt("page_size"),
			MaxAttempts:         viper.GetInt("max_attempts"),
			RegisterBackoffStep: viper.GetDuration("register_backoff_step"),
			FetchBackoffBase:    viper.GetDuration("fetch_backoff_base"),
			PageDelay:           viper.GetDuration("page_delay"),
			BatchDelay:          viper.GetDuration("batch_delay"),
		},
	}
	if ua := viper.GetString("user_agent"); ua != "" {
		cfg.Entrez.UserAgent = ua
	}

	if cfg.Entrez.Email == "" {
		return cfg, fmt.Errorf("an email address is required: set --email, SEQFETCH_EMAIL, or %s%s", secretsDir, secrets.KeyEmail)
	}
	if cfg.Entrez.APIKey == "" {
		return cfg, fmt.Errorf("an API key is required: set --api-key, SEQFETCH_API_KEY, or %s%s", secretsDir, secrets.KeyAPIKey)
	}
	return cfg, nil
}

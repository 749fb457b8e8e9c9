// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the seqfetch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd downloads FASTA records for an accession list.
var rootCmd = &cobra.Command{
	Use:   "seqfetch -i accessions.txt -o sequences.fasta --email you@example.org --api-key KEY",
	Short: "Download nucleotide sequences from NCBI for a list of accessions",
	Long: `seqfetch reads accession identifiers (one per line) and downloads the
matching nucleotide records from NCBI Entrez as FASTA.

Identifiers are posted to the Entrez history server in batches of 500 and
fetched back in pages of 200, with fixed delays between requests to stay
under the NCBI rate limit. Failed requests are retried with backoff; a batch
or page that keeps failing is skipped and the run carries on, so check the
log (or --summary) for gaps.

Email and API key may also come from SEQFETCH_EMAIL / SEQFETCH_API_KEY, the
config file, or .secrets/ncbi-email and .secrets/ncbi-api-key.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runFetch,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./seqfetch.yaml or ~/.config/seqfetch/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("seqfetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "seqfetch"))
		}
	}

	viper.SetEnvPrefix("SEQFETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

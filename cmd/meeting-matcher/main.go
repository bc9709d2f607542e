// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the meeting-matcher CLI. It serves the
// HTTP wrapper around the tl;dv MCP server and runs batch matching of
// meetings to customer accounts from the command line.
package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets secrets.Secrets

// configUsed is the config file read by initConfig, if any.
var configUsed string

// appLog is configured in PersistentPreRunE from the log.* settings.
var appLog = logging.Nop()

// rootCmd is the base command for the meeting-matcher CLI.
var rootCmd = &cobra.Command{
	Use:   "meeting-matcher",
	Short: "Link tl;dv meetings to customer accounts",
	Long: `meeting-matcher reads meetings from the tl;dv MCP server and links each one
to the customer account it most likely belongs to, using participant emails
first and the meeting title after that.

Use serve to run the HTTP API, process to run a batch from the command line,
and list, metadata, transcript, and highlights to query the source directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appLog = logging.New(logging.Config{
			Level:       logging.Level(viper.GetString("log.level")),
			ServiceName: "meeting-matcher",
			JSONFormat:  viper.GetBool("log.json"),
			Output:      cmd.ErrOrStderr(),
		})
		if configUsed != "" {
			appLog.Info("using config file", logging.F("path", configUsed))
		}

		s, err := secrets.Load(viper.GetString("secrets_dir"), appLog)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			appLog.Debug("loaded secrets", logging.F("keys", keys))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./meeting-matcher.yaml or ~/.config/meeting-matcher/config.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of credential files")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Bool("log-json", false, "emit JSON log lines instead of console output")
	pf.String("mode", "", "source transport: docker, local, or http (default docker)")
	pf.Duration("timeout", 0, "per-call timeout for the meeting source (default 60s)")

	bindFlag("secrets_dir", pf.Lookup("secrets-dir"))
	bindFlag("log.level", pf.Lookup("log-level"))
	bindFlag("log.json", pf.Lookup("log-json"))
	bindFlag("source.mode", pf.Lookup("mode"))
	bindFlag("source.timeout", pf.Lookup("timeout"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("meeting-matcher")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "meeting-matcher"))
		}
	}

	viper.SetEnvPrefix("MEETING_MATCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		configUsed = viper.ConfigFileUsed()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

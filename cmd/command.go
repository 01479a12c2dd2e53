// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeeDigitalWorks/s3dr/pkg/config"
	"github.com/LeeDigitalWorks/s3dr/pkg/env"
	"github.com/LeeDigitalWorks/s3dr/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	// v holds every setting; flags, environment and the config file all
	// land here before config.Load.
	v = config.New()

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "s3dr",
	Short: "s3dr - S3 cross-region disaster recovery automation",
	Long: `s3dr keeps tagged S3 buckets replicated into a DR region.
A watcher reacts to bucket tagging changes, a provisioner creates the
versioned "<bucket>-dr" destination and an enabler writes the replication
rule. The stages run as Lambda functions chained by SNS, as a local
pipeline over Redis, Kafka or an in-process queue, or synchronously
through the bootstrap command.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&config.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
	pf.String("log_level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("log_console", false, "Human-readable log output (default in the local environment)")

	pf.String(config.KeyMatchTagging, "", "JSON object of tags a bucket needs for DR (default {\"DR\":\"true\"})")
	pf.String(config.KeySourceRegion, "", "Region of the source buckets (default us-west-2)")
	pf.String(config.KeyDestRegion, "", "DR region for destination buckets (default us-east-2)")
	pf.String(config.KeyReplicationRole, "", "IAM role ARN or role name used by replication rules")
	pf.String(config.KeyLoggingBucket, "", "Access log target for destination buckets")
	pf.String(config.KeyStorageClass, "", "Storage class of replicas (default STANDARD)")
	pf.String(config.KeyReplicaKMSKeyID, "", "KMS key id, alias or ARN in the DR region for replica encryption")
	pf.String(config.KeyS3Endpoint, "", "S3-compatible endpoint override")
	pf.Bool(config.KeyS3PathStyle, false, "Use path-style S3 addressing")

	if err := v.BindPFlags(pf); err != nil {
		panic(err)
	}
}

// initialize loads settings in precedence order and sets up logging. The
// resolved configuration is left in cfg for the subcommands.
func initialize(cmd *cobra.Command, args []string) error {
	env.Load()
	initLogger()

	found, err := config.LoadConfiguration(v, "s3dr", false)
	if err != nil {
		return err
	}
	if found {
		// The file may carry log settings of its own.
		initLogger()
	}

	c, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	logger.Debug().
		Str("env", env.Env).
		Str("source_region", cfg.SourceRegion).
		Str("dest_region", cfg.DestRegion).
		Str("backend", cfg.Notify.Backend).
		Msg("configuration loaded")
	return nil
}

func initLogger() {
	console := v.GetBool("log_console")
	if !v.IsSet("log_console") {
		console = env.IsLocal() && !env.IsLambda()
	}
	logger.Init(logger.Config{
		Level:   v.GetString("log_level"),
		Console: console,
	})
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

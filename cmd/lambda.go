// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	pkglambda "github.com/LeeDigitalWorks/s3dr/pkg/lambda"
	"github.com/LeeDigitalWorks/s3dr/pkg/logger"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run one DR stage under the AWS Lambda runtime",
}

var lambdaWatcherCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Handle EventBridge tagging events and publish in-scope buckets",
	Args:  cobra.NoArgs,
	RunE:  runLambdaWatcher,
}

var lambdaProvisionerCmd = &cobra.Command{
	Use:   "provisioner",
	Short: "Handle SNS hand-offs by creating the versioned DR bucket",
	Args:  cobra.NoArgs,
	RunE:  runLambdaProvisioner,
}

var lambdaEnablerCmd = &cobra.Command{
	Use:   "enabler",
	Short: "Handle SNS hand-offs by writing the replication rule",
	Args:  cobra.NoArgs,
	RunE:  runLambdaEnabler,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
	lambdaCmd.AddCommand(lambdaWatcherCmd, lambdaProvisionerCmd, lambdaEnablerCmd)
}

func runLambdaWatcher(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	bus, err := a.openBus(ctx, false)
	if err != nil {
		return fmt.Errorf("open %s publisher: %w", cfg.Notify.Backend, err)
	}

	logger.Info().Str("channel", cfg.Notify.ProvisionChannel).Msg("starting watcher")
	awslambda.StartWithOptions(pkglambda.CloudWatch("watcher", a.watcher(bus.Publisher)), awslambda.WithContext(ctx))
	return nil
}

func runLambdaProvisioner(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	bus, err := a.openBus(ctx, false)
	if err != nil {
		return fmt.Errorf("open %s publisher: %w", cfg.Notify.Backend, err)
	}

	logger.Info().Str("channel", cfg.Notify.ReplicationChannel).Msg("starting provisioner")
	awslambda.StartWithOptions(pkglambda.SNS("provisioner", a.provisioner(bus.Publisher)), awslambda.WithContext(ctx))
	return nil
}

func runLambdaEnabler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	rule, err := a.ruleTemplate(ctx)
	if err != nil {
		return err
	}

	logger.Info().Str("role", rule.Role).Msg("starting enabler")
	awslambda.StartWithOptions(pkglambda.SNS("enabler", a.enabler(rule)), awslambda.WithContext(ctx))
	return nil
}

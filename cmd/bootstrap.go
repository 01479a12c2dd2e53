// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/LeeDigitalWorks/s3dr/pkg/config"
	"github.com/LeeDigitalWorks/s3dr/pkg/dr"
	"github.com/LeeDigitalWorks/s3dr/pkg/logger"

	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap <bucket>...",
	Short: "Enable DR for existing buckets without the event pipeline",
	Long: `Bootstrap runs every DR stage for each named bucket in one process:
scope check, source versioning, destination bucket and replication rule.
Buckets already replicating are left unchanged. Buckets are processed in
order at --bootstrap_rate per second; a failure does not stop the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBootstrap,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)

	bootstrapCmd.Flags().Float64(config.KeyBootstrapRate, 5, "Buckets per second (0 for no limit)")
	bootstrapCmd.Flags().Int(config.KeyBootstrapBurst, 1, "Buckets allowed in a burst")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fl := NewFlagLoader(cmd, v)
	rate := fl.Float64(config.KeyBootstrapRate)
	burst := fl.Int(config.KeyBootstrapBurst)
	if rate < 0 {
		return fmt.Errorf("%s must not be negative", config.KeyBootstrapRate)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rule, err := a.ruleTemplate(ctx)
	if err != nil {
		return err
	}

	logger.Info().
		Int("buckets", len(args)).
		Float64("rate", rate).
		Msg("bootstrapping DR")

	results, err := a.bootstrap(rule, rate, burst).RunAll(ctx, args)
	printResults(cmd.OutOrStdout(), results)
	if err != nil {
		return fmt.Errorf("bootstrap failed for some buckets: %w", err)
	}
	return nil
}

func printResults(out io.Writer, results []dr.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tDESTINATION\tOUTCOME\tERROR")
	for _, r := range results {
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Bucket, dr.DestinationName(r.Bucket), r.Outcome, errText)
	}
	w.Flush()
}

// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/LeeDigitalWorks/s3dr/pkg/dr"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <bucket>...",
	Short: "Show the DR state of buckets without changing anything",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Bool("json", false, "Print reports as JSON")
}

// checkView is the printed form of a dr.Report.
type checkView struct {
	Bucket                string            `json:"bucket"`
	State                 dr.State          `json:"state"`
	InScope               bool              `json:"in_scope"`
	Tags                  map[string]string `json:"tags"`
	Versioning            string            `json:"versioning"`
	ReplicationConfigured bool              `json:"replication_configured"`
	ReplicationEnabled    bool              `json:"replication_enabled"`
	ReplicationTarget     string            `json:"replication_target,omitempty"`
	Destination           string            `json:"destination"`
	DestinationExists     bool              `json:"destination_exists"`
	DestinationVersioning string            `json:"destination_versioning,omitempty"`
	Error                 string            `json:"error,omitempty"`
}

func newCheckView(r dr.Report, err error) checkView {
	view := checkView{
		Bucket:                r.Bucket,
		State:                 r.State(),
		InScope:               r.InScope,
		Tags:                  r.Tags,
		Versioning:            versioningText(string(r.Versioning)),
		ReplicationConfigured: r.Replication.Configured,
		ReplicationEnabled:    r.Replication.Enabled,
		ReplicationTarget:     r.Replication.Destination,
		Destination:           r.Destination,
		DestinationExists:     r.DestinationExists,
		DestinationVersioning: string(r.DestinationVersioning),
	}
	if err != nil {
		view.Error = err.Error()
	}
	return view
}

func versioningText(status string) string {
	if status == "" {
		return "Unversioned"
	}
	return status
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Inspect never writes a rule, so the role is not resolved.
	inspector := a.bootstrap(dr.RuleTemplate{}, 0, 0)

	views := make([]checkView, 0, len(args))
	var errs []error
	for _, bucket := range args {
		report, err := inspector.Inspect(ctx, bucket)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", bucket, err))
		}
		views = append(views, newCheckView(report, err))
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(views); err != nil {
			return err
		}
	} else {
		printChecks(out, views)
	}
	return errors.Join(errs...)
}

func printChecks(out io.Writer, views []checkView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tSTATE\tIN SCOPE\tVERSIONING\tREPLICATION\tDESTINATION\tERROR")
	for _, c := range views {
		replication := "none"
		switch {
		case c.ReplicationEnabled:
			replication = "enabled"
		case c.ReplicationConfigured:
			replication = "disabled"
		}
		destination := c.Destination + " (missing)"
		if c.DestinationExists {
			destination = c.Destination + " (" + versioningText(c.DestinationVersioning) + ")"
		}
		errText := "-"
		if c.Error != "" {
			errText = c.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\t%s\n",
			c.Bucket, c.State, c.InScope, c.Versioning, replication, destination, errText)
	}
	w.Flush()
}

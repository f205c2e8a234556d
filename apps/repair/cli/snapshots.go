package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	dailymetricdomain "github.com/smallbiznis/pulse/internal/dailymetric/domain"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Repair daily metric snapshots",
}

var snapshotsDedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove duplicate snapshot rows and enforce one row per day",
	Long: `Keep the most recently computed row for every metric date that has more
than one, delete the rest, then make sure the unique date index exists.

Examples:
  pulse-repair snapshots dedup --dry-run   # Report what would be removed
  pulse-repair snapshots dedup             # Remove duplicates`,
	Args: cobra.NoArgs,
	RunE: runSnapshotsDedup,
}

// Flags
var dedupDryRun bool

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsDedupCmd)

	snapshotsDedupCmd.Flags().BoolVar(&dedupDryRun, "dry-run", false, "Report duplicates without deleting")
}

func runSnapshotsDedup(cmd *cobra.Command, args []string) error {
	return withSnapshots(cmd.Context(), func(ctx context.Context, svc dailymetricdomain.Service) error {
		report, err := svc.Dedup(ctx, dailymetricdomain.DedupOptions{DryRun: dedupDryRun})
		if err != nil {
			return fmt.Errorf("dedup snapshots: %w", err)
		}
		printDedupReport(cmd, report)
		return nil
	})
}

func printDedupReport(cmd *cobra.Command, report *dailymetricdomain.DedupReport) {
	out := cmd.OutOrStdout()
	if len(report.Dates) == 0 {
		fmt.Fprintln(out, "No duplicate snapshots found.")
	}
	for _, d := range report.Dates {
		removed := make([]string, 0, len(d.Removed))
		for _, id := range d.Removed {
			removed = append(removed, id.String())
		}
		fmt.Fprintf(out, "%s  keep %s  remove %s\n", d.MetricDate, d.Kept.String(), strings.Join(removed, ","))
	}

	verb := "Removed"
	if report.DryRun {
		verb = "Would remove"
	}
	fmt.Fprintf(out, "%s %d row(s) across %d date(s).\n", verb, report.RowsRemoved, len(report.Dates))
	if report.ConstraintEnsured {
		fmt.Fprintln(out, "Unique index on metric_date is in place.")
	}
}

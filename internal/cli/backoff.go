package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/invoker/internal/resilience/backoff"
)

var backoffCmd = &cobra.Command{
	Use:   "backoff",
	Short: "Print the retry delay schedule for the configured policy",
	RunE:  runBackoff,
}

func init() {
	rootCmd.AddCommand(backoffCmd)
}

func runBackoff(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	policy, err := backoff.NewPolicy(cfg.Retry.Backoff())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ATTEMPT\tDELAY AFTER\tELAPSED")

	var elapsed int64
	for i, d := range policy.Schedule() {
		elapsed += d.Milliseconds()
		_, _ = fmt.Fprintf(w, "%d\t%s\t%dms\n", i+1, d, elapsed)
	}
	_, _ = fmt.Fprintf(w, "%d\t-\t%dms\n", policy.MaxAttempts(), elapsed)
	if j := policy.Config().Jitter; j > 0 {
		_, _ = fmt.Fprintf(w, "jitter\t+[0, %s)\t\n", j)
	}
	return w.Flush()
}

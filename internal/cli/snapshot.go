package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/invoker/internal/resilience/diagnostics"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch retry diagnostics from a running server",
	RunE:  runSnapshot,
}

var (
	snapshotAddr string
	snapshotJSON bool
)

func init() {
	snapshotCmd.Flags().StringVar(&snapshotAddr, "addr", "http://localhost:9090", "diagnostics server address")
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "print the raw JSON body")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	snap, err := fetchSnapshot(ctx, http.DefaultClient, snapshotAddr)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if snapshotJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	_, _ = fmt.Fprintf(out, "total: %d  retained: %d  max attempts: %d  schedule: %v ms\n\n",
		snap.TotalCount, snap.Retained, snap.Policy.MaxAttempts, snap.Policy.ScheduleMs)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tRULE\tMESSAGE")
	for _, e := range snap.Recent {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Rule, e.Message)
	}
	return w.Flush()
}

func fetchSnapshot(ctx context.Context, client *http.Client, addr string) (*diagnostics.Snapshot, error) {
	url := strings.TrimRight(addr, "/") + "/diagnostics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach diagnostics server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("diagnostics server returned %s", resp.Status)
	}

	var snap diagnostics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

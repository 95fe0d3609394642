package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	rlconfig "escrowgate/internal/ratelimit/config"
	"escrowgate/internal/ratelimit/models"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type policyRow struct {
	Prefix               string `json:"prefix"`
	WindowSeconds        int64  `json:"window_seconds"`
	Max                  int    `json:"max"`
	BlockDurationSeconds int64  `json:"block_duration_seconds"`
	FailureThreshold     int    `json:"failure_threshold,omitempty"`
}

func newPoliciesCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List the rate limit policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writePolicies(cmd.OutOrStdout(), rlconfig.MustDefault().All(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table or json")
	return cmd
}

func writePolicies(w io.Writer, policies []models.Policy, format string) error {
	rows := make([]policyRow, 0, len(policies))
	for _, p := range policies {
		rows = append(rows, policyRow{
			Prefix:               p.Prefix,
			WindowSeconds:        int64(p.Window.Seconds()),
			Max:                  p.Max,
			BlockDurationSeconds: int64(p.BlockDuration.Seconds()),
			FailureThreshold:     p.FailureThreshold,
		})
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case formatTable, "":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Prefix", "Window", "Max", "Block", "Failure threshold"})
		for i, r := range rows {
			threshold := "-"
			if r.FailureThreshold > 0 {
				threshold = fmt.Sprint(r.FailureThreshold)
			}
			t.AppendRow(table.Row{r.Prefix, policies[i].Window, r.Max, policies[i].BlockDuration, threshold})
		}
		t.Render()
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

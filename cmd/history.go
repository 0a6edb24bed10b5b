package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/journal"
	"github.com/kozaktomas/faceswap/internal/synth"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List submitted face swap jobs",
	Long: `List face swap jobs recorded in the submission journal, newest first.
The journal is kept in PostgreSQL when DATABASE_URL is set.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "Maximum number of jobs to list (0 for all)")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

// describeParams summarizes the matching parameters of a request.
func describeParams(req synth.FaceSwapRequest) string {
	var parts []string
	if req.Multiface {
		parts = append(parts, "multiface")
	}
	if req.Similarface {
		parts = append(parts, "similarface "+req.SimilarCoeff)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func printHistory(entries []journal.Entry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Submitted", "Panel", "Target", "Source", "Params")
	for _, e := range entries {
		table.Append(
			e.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
			e.PanelID,
			fmt.Sprintf("%s (%s, %d)", e.Request.TargetContent, e.Request.TypeFileTarget, len(e.Request.FaceTargetFields)),
			fmt.Sprintf("%s (%s, %d)", e.Request.SourceContent, e.Request.TypeFileSource, len(e.Request.FaceSourceFields)),
			describeParams(e.Request),
		)
	}
	table.Render()
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	if cfg.Database.URL == "" {
		fmt.Fprintln(os.Stderr, "Warning: DATABASE_URL is not set, only jobs of this process would be listed")
	}

	j, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	entries, err := j.List(ctx, mustGetInt(cmd, "limit"))
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No submissions recorded")
		return nil
	}
	printHistory(entries)
	return nil
}

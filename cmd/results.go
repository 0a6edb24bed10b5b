package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/constants"
	"github.com/kozaktomas/faceswap/internal/synth"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List face swap results",
	Long: `List face swap results kept by the synthesis backend.

With --follow the command polls the backend until a result newer than the
ones already listed shows up, which is how a submitted job is watched to the end.`,
	Args: cobra.NoArgs,
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().Bool("json", false, "Output as JSON")
	resultsCmd.Flags().Bool("follow", false, "Wait for a new result to appear")
	resultsCmd.Flags().Bool("all", false, "Include results of every synthesis mode")
}

// newResults returns the results in current that are not in previous.
// Results are identified by their request date and output URL.
func newResults(previous, current []synth.SynthesisResult) []synth.SynthesisResult {
	seen := make(map[string]struct{}, len(previous))
	for _, r := range previous {
		seen[r.RequestDate+"|"+r.ResponseURL] = struct{}{}
	}
	var out []synth.SynthesisResult
	for _, r := range current {
		if _, ok := seen[r.RequestDate+"|"+r.ResponseURL]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func printResults(results []synth.SynthesisResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Date", "Mode", "Status", "Output")
	for _, r := range results {
		status := "ok"
		if r.Failed() {
			status = "failed"
		}
		output := r.ResponseURL
		if output == "" {
			output = r.RequestInformation
		}
		table.Append(r.RequestDate, r.RequestMode, status, output)
	}
	table.Render()
}

func runResults(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")
	follow := mustGetBool(cmd, "follow")
	all := mustGetBool(cmd, "all")

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetch := func() ([]synth.SynthesisResult, error) {
		if all {
			return client.Results(ctx)
		}
		return client.FaceSwapResults(ctx)
	}

	results, err := fetch()
	if err != nil {
		return err
	}

	if follow {
		if !jsonOutput {
			fmt.Printf("%d result(s) so far, waiting for a new one...\n", len(results))
		}
		ticker := time.NewTicker(constants.ResultPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			current, err := fetch()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				continue
			}
			if fresh := newResults(results, current); len(fresh) > 0 {
				results = fresh
				break
			}
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results")
		return nil
	}
	printResults(results)
	return nil
}

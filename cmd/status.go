package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceswap/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the synthesis backend is busy",
	Long: `Ask the synthesis backend whether a job is running.
A new face swap is only accepted while the backend is idle.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	status, err := client.ProcessStatus(ctx)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"status_code": status.StatusCode,
			"busy":        status.Busy(),
		})
	}

	if status.Busy() {
		fmt.Printf("Backend is busy (status %d)\n", status.StatusCode)
		return nil
	}
	fmt.Println("Backend is idle")
	return nil
}

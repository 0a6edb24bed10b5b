package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceswap/internal/config"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Check whether the face swap models are available",
	Long: `Query the backend inspector for model availability.
The backend reports which models are missing for offline use; the panel
shows this note when it opens.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("endpoint", "", "Inspector endpoint (default FACESWAP_INSPECT_ENDPOINT)")
	inspectCmd.Flags().Bool("json", false, "Output as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	endpoint := mustGetString(cmd, "endpoint")
	if endpoint == "" {
		endpoint = cfg.Backend.InspectEndpoint
	}

	result, err := client.Inspect(ctx, endpoint)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.OfflineStatus {
		fmt.Println("Models available for offline use")
	} else {
		fmt.Println("Models not fully available offline")
	}
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	return nil
}

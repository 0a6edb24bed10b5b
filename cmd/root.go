package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var captureDir string

var rootCmd = &cobra.Command{
	Use:   "faceswap",
	Short: "Prepare and submit face swap jobs to a synthesis backend",
	Long: `Face Swap prepares face swap jobs for a synthesis backend: it loads the
target and source media, records which faces to use, checks that the backend
is idle and hands the job over. Panels can be driven from the command line or
served to a browser front end.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save backend responses for testing")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/translate"
	"github.com/kozaktomas/faceswap/internal/web"
	"github.com/kozaktomas/faceswap/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the panel server",
	Long: `Start the face swap panel server.
The server keeps panel state for browser clients: media upload, face
selection, video ranges, parameters and job submission, with live status
updates over server-sent events.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default WEB_HOST or 0.0.0.0)")
}

// resolveServeHostPort applies the flags over the environment configuration.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	translator, err := translate.New(ctx, cfg.Translate)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}
	if cfg.Translate.Enabled() {
		fmt.Printf("Status messages translated to %s (%s)\n", cfg.Panel.Locale, cfg.Translate.Provider)
	}

	j, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal()
	if cfg.Database.URL != "" {
		fmt.Println("Submission journal enabled (PostgreSQL)")
	}

	server := web.NewServer(cfg, handlers.PanelServices{
		Backend:    client,
		Uploader:   client,
		Translator: translator,
		Journal:    j,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting face swap panel server on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Printf("Synthesis backend: %s\n", cfg.Backend.URL)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

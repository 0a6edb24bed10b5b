package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/journal"
	"github.com/kozaktomas/faceswap/internal/journal/postgres"
	"github.com/kozaktomas/faceswap/internal/synth"
)

// newBackendClient connects to the synthesis backend, capturing responses when --capture is set.
func newBackendClient(cfg *config.Config) (*synth.Client, error) {
	client, err := synth.NewClientWithCapture(cfg.Backend.URL, captureDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

// openJournal returns the Postgres journal when DATABASE_URL is set and an
// in-memory one otherwise. The returned func releases the connection pool.
func openJournal(ctx context.Context, cfg *config.Config) (journal.Journal, func(), error) {
	if cfg.Database.URL == "" {
		return journal.NewMemory(), func() {}, nil
	}

	j, pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open submission journal: %w", err)
	}
	return j, func() { pool.Close() }, nil
}

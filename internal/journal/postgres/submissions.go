package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/faceswap/internal/journal"
)

// Journal is a PostgreSQL-backed journal.Journal.
type Journal struct {
	pool *Pool
}

var _ journal.Journal = (*Journal)(nil)

func NewJournal(pool *Pool) *Journal {
	return &Journal{pool: pool}
}

func (j *Journal) Record(ctx context.Context, entry journal.Entry) error {
	body, err := json.Marshal(entry.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	query := `
		INSERT INTO submissions (id, panel_id, submitted_at, target_content, source_content,
			multiface, similarface, similar_coeff, request)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	req := entry.Request
	_, err = j.pool.db.ExecContext(ctx, query,
		entry.ID, entry.PanelID, entry.SubmittedAt, req.TargetContent, req.SourceContent,
		req.Multiface, req.Similarface, req.SimilarCoeff, body)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (j *Journal) List(ctx context.Context, limit int) ([]journal.Entry, error) {
	query := `
		SELECT id, panel_id, submitted_at, request
		FROM submissions
		ORDER BY submitted_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := j.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		var e journal.Entry
		var body []byte
		if err := rows.Scan(&e.ID, &e.PanelID, &e.SubmittedAt, &body); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal(body, &e.Request); err != nil {
			return nil, fmt.Errorf("unmarshal submission %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return entries, nil
}

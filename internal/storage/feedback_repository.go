package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Feedback is one user correction or confirmation of a verdict.
type Feedback struct {
	ID               int64     `db:"id" json:"id"`
	URL              string    `db:"url" json:"url"`
	Domain           string    `db:"domain" json:"domain"`
	Verdict          string    `db:"verdict" json:"verdict"`
	UserFeedback     string    `db:"user_feedback" json:"user_feedback"`
	CorrectedVerdict *string   `db:"corrected_verdict" json:"corrected_verdict,omitempty"`
	ClientID         string    `db:"client_id" json:"client_id,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// FeedbackRepository handles database operations for verdict feedback.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a new feedback record, setting its ID and CreatedAt.
func (r *FeedbackRepository) Create(ctx context.Context, fb *Feedback) error {
	fb.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO feedback (url, domain, verdict, user_feedback, corrected_verdict, client_id, created_at)
		VALUES (:url, :domain, :verdict, :user_feedback, :corrected_verdict, :client_id, :created_at)`

	result, err := r.db.NamedExecContext(ctx, query, fb)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read feedback id: %w", err)
	}
	fb.ID = id
	return nil
}

// Recent returns the newest feedback records, most recent first.
func (r *FeedbackRepository) Recent(ctx context.Context, limit int) ([]Feedback, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, url, domain, verdict, user_feedback, corrected_verdict, client_id, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	var out []Feedback
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return out, nil
}

// CountsByVerdict returns the number of feedback records per verdict.
func (r *FeedbackRepository) CountsByVerdict(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT verdict, COUNT(*) AS count
		FROM feedback
		GROUP BY verdict`

	rows := []struct {
		Verdict string `db:"verdict"`
		Count   int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Verdict] = row.Count
	}
	return out, nil
}

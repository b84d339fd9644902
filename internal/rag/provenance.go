package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrRunNotFound indicates the referenced chat run does not exist.
var ErrRunNotFound = errors.New("chat run not found")

// Run is one answer request to be recorded: the question, the outcome mode,
// the produced answer (nil when refused) and the full ranked evidence.
type Run struct {
	Question string
	Mode     string
	Answer   *string
	Evidence Evidence
}

// StoredRun is a persisted chat run as read back for auditors. Evidence is
// kept as raw JSON so the audit trail is returned byte-for-byte as written.
type StoredRun struct {
	ID        uuid.UUID       `json:"id"`
	Question  string          `json:"question"`
	Mode      string          `json:"mode"`
	Answer    *string         `json:"answer"`
	Evidence  json.RawMessage `json:"evidence"`
	CreatedAt time.Time       `json:"created_at"`
}

// Recorder persists the append-only chat run audit trail. Runs are written
// once and never mutated or deleted by this service.
type Recorder struct {
	db     DB
	logger *slog.Logger
}

// NewRecorder creates a provenance recorder. logger may be nil.
func NewRecorder(db DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger}
}

// Record inserts one chat run and returns its id.
//
// Callers on the answer path must not fail the response on a Record error:
// the policy favors answer availability over perfect audit completeness, so
// failures are logged at the call site and swallowed.
func (r *Recorder) Record(ctx context.Context, run Run) (uuid.UUID, error) {
	id := uuid.New()

	evidence, err := json.Marshal(run.Evidence)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling evidence: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO chat_runs (id, question, mode, answer, evidence)
		VALUES ($1, $2, $3, $4, $5)`,
		id, run.Question, run.Mode, run.Answer, evidence,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting chat run: %w", err)
	}

	r.logger.Debug("recorded chat run", "id", id, "mode", run.Mode)
	return id, nil
}

// ListRuns returns chat runs, newest first.
func (r *Recorder) ListRuns(ctx context.Context, limit int) ([]StoredRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, question, mode, answer, evidence, created_at
		FROM chat_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chat runs: %w", err)
	}
	defer rows.Close()

	var runs []StoredRun
	for rows.Next() {
		var run StoredRun
		if err := rows.Scan(&run.ID, &run.Question, &run.Mode, &run.Answer, &run.Evidence, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one chat run by id.
func (r *Recorder) GetRun(ctx context.Context, id uuid.UUID) (StoredRun, error) {
	var run StoredRun
	err := r.db.QueryRow(ctx, `
		SELECT id, question, mode, answer, evidence, created_at
		FROM chat_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Question, &run.Mode, &run.Answer, &run.Evidence, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return StoredRun{}, fmt.Errorf("fetching chat run %s: %w", id, err)
	}
	return run, nil
}

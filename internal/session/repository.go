package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jumpcut/jumpcut-engine/internal/edl"
)

type Repository interface {
	CreateEdit(ctx context.Context, edit *Edit) error
	GetEdit(ctx context.Context, id string) (*Edit, error)
	ListEdits(ctx context.Context) ([]*Edit, error)
	DeleteEdit(ctx context.Context, id string) error
	TouchEdit(ctx context.Context, id string) error

	SaveDecisions(ctx context.Context, editID string, decisions []edl.Decision) error
	GetDecisions(ctx context.Context, editID string) ([]edl.Decision, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateEdit(ctx context.Context, e *Edit) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO edits (id, name, source_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.SourceRef, e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetEdit(ctx context.Context, id string) (*Edit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, source_ref, created_at, updated_at
		FROM edits WHERE id = ?
	`, id)

	var e Edit
	var createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.Name, &e.SourceRef, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &e, nil
}

func (r *SQLiteRepository) ListEdits(ctx context.Context) ([]*Edit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, source_ref, created_at, updated_at
		FROM edits ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edits []*Edit
	for rows.Next() {
		var e Edit
		var createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.Name, &e.SourceRef, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		edits = append(edits, &e)
	}
	return edits, rows.Err()
}

func (r *SQLiteRepository) DeleteEdit(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM edits WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) TouchEdit(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE edits SET updated_at = ? WHERE id = ?`,
		time.Now().Format(time.RFC3339), id)
	return err
}

// SaveDecisions replaces the persisted decision list for an edit atomically.
func (r *SQLiteRepository) SaveDecisions(ctx context.Context, editID string, decisions []edl.Decision) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edit_decisions WHERE edit_id = ?`, editID); err != nil {
		return err
	}

	for _, d := range decisions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO edit_decisions
				(id, edit_id, order_index, segment_id, source_ref, start_time, end_time,
				 transcript_text, is_included, is_ai_selected, user_modified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, d.ID, editID, d.OrderIndex, d.SegmentID, d.SourceRef, d.StartTime, d.EndTime,
			d.TranscriptText, boolToInt(d.IsIncluded), boolToInt(d.IsAISelected), boolToInt(d.UserModified))
		if err != nil {
			return fmt.Errorf("insert decision %s: %w", d.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE edits SET updated_at = ? WHERE id = ?`,
		time.Now().Format(time.RFC3339), editID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetDecisions(ctx context.Context, editID string) ([]edl.Decision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_index, segment_id, source_ref, start_time, end_time,
		       transcript_text, is_included, is_ai_selected, user_modified
		FROM edit_decisions WHERE edit_id = ? ORDER BY order_index
	`, editID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []edl.Decision
	for rows.Next() {
		var d edl.Decision
		var included, aiSelected, modified int
		if err := rows.Scan(&d.ID, &d.OrderIndex, &d.SegmentID, &d.SourceRef, &d.StartTime, &d.EndTime,
			&d.TranscriptText, &included, &aiSelected, &modified); err != nil {
			return nil, err
		}
		d.IsIncluded = included == 1
		d.IsAISelected = aiSelected == 1
		d.UserModified = modified == 1
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM engine_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO engine_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

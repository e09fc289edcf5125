package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Label is a named tag that can be attached to documents.
type Label struct {
	ID    int64
	Name  string
	Color string
}

// CreateLabel inserts a label, returning the existing one when the name is taken.
func (s *Store) CreateLabel(ctx context.Context, name, color string) (*Label, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO labels (name, color) VALUES (?, ?)
         ON CONFLICT(name) DO UPDATE SET color = excluded.color`,
		name, nullableString(color),
	)
	if err != nil {
		return nil, fmt.Errorf("create label: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		return &Label{ID: id, Name: name, Color: color}, nil
	}
	return s.labelByName(ctx, name)
}

func (s *Store) labelByName(ctx context.Context, name string) (*Label, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, color FROM labels WHERE name = ?`, name)
	return scanLabel(row)
}

// ListLabels returns all labels ordered by name.
func (s *Store) ListLabels(ctx context.Context) ([]*Label, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM labels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var labels []*Label
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// DeleteLabel removes a label and its document associations.
func (s *Store) DeleteLabel(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete label: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetDocumentLabels replaces the label set attached to a document.
func (s *Store) SetDocumentLabels(ctx context.Context, documentID string, labelIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin label tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_labels WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clear document labels: %w", err)
	}
	for _, labelID := range labelIDs {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO document_labels (document_id, label_id) VALUES (?, ?)`,
			documentID, labelID,
		); err != nil {
			return fmt.Errorf("attach label %d: %w", labelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit label tx: %w", err)
	}
	return nil
}

// DocumentLabels returns the labels attached to a document, ordered by name.
func (s *Store) DocumentLabels(ctx context.Context, documentID string) ([]*Label, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT l.id, l.name, l.color FROM labels l
         JOIN document_labels dl ON dl.label_id = l.id
         WHERE dl.document_id = ? ORDER BY l.name`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("document labels: %w", err)
	}
	defer rows.Close()

	var labels []*Label
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func scanLabel(scanner interface{ Scan(dest ...any) error }) (*Label, error) {
	var (
		id    int64
		name  string
		color sql.NullString
	)
	if err := scanner.Scan(&id, &name, &color); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan label: %w", err)
	}
	return &Label{ID: id, Name: name, Color: color.String}, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StageStatus is the terminal-state tracker for one background stage of a
// document's processing job.
type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageSkipped StageStatus = "skipped"
	StageDone    StageStatus = "done"
	StageFailed  StageStatus = "failed"
)

// Terminal reports whether the stage can no longer change.
func (s StageStatus) Terminal() bool {
	switch s {
	case StageSkipped, StageDone, StageFailed:
		return true
	}
	return false
}

// Document represents one uploaded artifact on the board.
type Document struct {
	ID             string
	Title          string
	Position       int64
	Pending        bool
	ContentType    string
	SourcePath     string
	ThumbnailPath  string
	PagePaths      []string
	DarkPagePaths  []string
	MetadataStatus StageStatus
	DarkModeStatus StageStatus
	OCRTitle       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InsertDocument persists a new document at the end of the board order.
func (s *Store) InsertDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.MetadataStatus == "" {
		doc.MetadataStatus = StagePending
	}
	if doc.DarkModeStatus == "" {
		doc.DarkModeStatus = StagePending
	}

	var maxPos sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM documents`).Scan(&maxPos); err != nil {
		return fmt.Errorf("next position: %w", err)
	}
	doc.Position = maxPos.Int64 + 1

	pages, err := marshalPaths(doc.PagePaths)
	if err != nil {
		return err
	}
	darkPages, err := marshalPaths(doc.DarkPagePaths)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO documents (
            id, title, position, pending, content_type, source_path,
            thumbnail_path, page_paths, dark_page_paths,
            metadata_status, darkmode_status, ocr_title, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.Title,
		doc.Position,
		boolToInt(doc.Pending),
		nullableString(doc.ContentType),
		nullableString(doc.SourcePath),
		nullableString(doc.ThumbnailPath),
		pages,
		darkPages,
		string(doc.MetadataStatus),
		string(doc.DarkModeStatus),
		nullableString(doc.OCRTitle),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetDocument fetches a document by identifier. Returns nil when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents in board order.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY position, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ActivateDocument clears the pending flag, making the document visible on
// the shared board.
func (s *Store) ActivateDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE documents SET pending = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("activate document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReorderDocuments rewrites board positions to match the given id order.
// Unknown ids are ignored; documents not listed keep positions after the
// listed ones in their previous relative order.
func (s *Store) ReorderDocuments(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for index, id := range ids {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE documents SET position = ?, updated_at = ? WHERE id = ?`,
			int64(index), now, id,
		); err != nil {
			return fmt.Errorf("reorder document %s: %w", id, err)
		}
	}

	if len(ids) > 0 {
		placeholders := makePlaceholders(len(ids))
		args := make([]any, 0, len(ids)+1)
		args = append(args, int64(len(ids)))
		for _, id := range ids {
			args = append(args, id)
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE documents SET position = position + ? WHERE id NOT IN (`+placeholders+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("shift unlisted documents: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// UpdateTitle renames a document.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE documents SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

// SetRenderResult persists the fast-stage outputs for a document.
func (s *Store) SetRenderResult(ctx context.Context, id, thumbnailPath string, pagePaths []string) error {
	pages, err := marshalPaths(pagePaths)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE documents SET thumbnail_path = ?, page_paths = ?, updated_at = ? WHERE id = ?`,
		nullableString(thumbnailPath),
		pages,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set render result: %w", err)
	}
	return nil
}

// SetMetadataResult records the outcome of the metadata extraction stage.
// It touches only the columns owned by that stage.
func (s *Store) SetMetadataResult(ctx context.Context, id string, status StageStatus, ocrTitle string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE documents SET metadata_status = ?, ocr_title = ?, updated_at = ? WHERE id = ?`,
		string(status),
		nullableString(ocrTitle),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set metadata result: %w", err)
	}
	return nil
}

// SetDarkModeResult records the outcome of the alternate-theme render stage.
// It touches only the columns owned by that stage.
func (s *Store) SetDarkModeResult(ctx context.Context, id string, status StageStatus, darkPaths []string) error {
	encoded, err := marshalPaths(darkPaths)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE documents SET darkmode_status = ?, dark_page_paths = ?, updated_at = ? WHERE id = ?`,
		string(status),
		encoded,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set dark mode result: %w", err)
	}
	return nil
}

// DeleteDocument removes a document. Label associations cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DocumentStats summarizes board contents for health reporting.
type DocumentStats struct {
	Total   int
	Pending int
	Active  int
}

// Stats returns document counts by visibility.
func (s *Store) Stats(ctx context.Context) (DocumentStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pending, COUNT(1) FROM documents GROUP BY pending`)
	if err != nil {
		return DocumentStats{}, fmt.Errorf("document stats: %w", err)
	}
	defer rows.Close()

	var stats DocumentStats
	for rows.Next() {
		var pending, count int
		if err := rows.Scan(&pending, &count); err != nil {
			return DocumentStats{}, err
		}
		stats.Total += count
		if pending != 0 {
			stats.Pending += count
		} else {
			stats.Active += count
		}
	}
	return stats, rows.Err()
}

const documentColumns = "id, title, position, pending, content_type, source_path, thumbnail_path, page_paths, dark_page_paths, metadata_status, darkmode_status, ocr_title, created_at, updated_at"

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		id             string
		title          string
		position       int64
		pending        int
		contentType    sql.NullString
		sourcePath     sql.NullString
		thumbnailPath  sql.NullString
		pagePaths      sql.NullString
		darkPagePaths  sql.NullString
		metadataStatus string
		darkmodeStatus string
		ocrTitle       sql.NullString
		createdRaw     string
		updatedRaw     string
	)

	if err := scanner.Scan(
		&id,
		&title,
		&position,
		&pending,
		&contentType,
		&sourcePath,
		&thumbnailPath,
		&pagePaths,
		&darkPagePaths,
		&metadataStatus,
		&darkmodeStatus,
		&ocrTitle,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:             id,
		Title:          title,
		Position:       position,
		Pending:        pending != 0,
		ContentType:    contentType.String,
		SourcePath:     sourcePath.String,
		ThumbnailPath:  thumbnailPath.String,
		MetadataStatus: StageStatus(metadataStatus),
		DarkModeStatus: StageStatus(darkmodeStatus),
		OCRTitle:       ocrTitle.String,
	}

	var err error
	if doc.PagePaths, err = unmarshalPaths(pagePaths.String); err != nil {
		return nil, err
	}
	if doc.DarkPagePaths, err = unmarshalPaths(darkPagePaths.String); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		doc.UpdatedAt = updated
	}
	return doc, nil
}

func marshalPaths(paths []string) (any, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return nil, fmt.Errorf("marshal paths: %w", err)
	}
	return string(data), nil
}

func unmarshalPaths(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return nil, fmt.Errorf("unmarshal paths: %w", err)
	}
	return paths, nil
}

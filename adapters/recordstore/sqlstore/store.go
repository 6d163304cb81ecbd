// Package sqlstore keeps record files in a SQL table, on PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"porosity/domain/core"
	"porosity/internal"
	"porosity/internal/errors"
	"porosity/ports"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store implements ports.RecordStore on a record_files table
type Store struct {
	db     *sqlx.DB
	logger *internal.Logger
}

var _ ports.RecordStore = (*Store)(nil)

// fileRow mirrors one record_files row without its content
type fileRow struct {
	Path       string `db:"path"`
	Size       int64  `db:"size"`
	SHA256     string `db:"sha256"`
	UploadedAt int64  `db:"uploaded_at"` // unix milliseconds
}

// Open connects with driver "postgres" or "sqlite" and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported record store driver %q", driver))
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to open record store", err)
	}
	if driver == "sqlite" {
		// a single connection keeps :memory: databases shared and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to reach record store", err)
	}

	s := &Store{db: db, logger: internal.DefaultLogger.With("SQLStore")}
	if err := s.migrate(ctx, driver); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to migrate record store", err)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context, driver string) error {
	blob := "BLOB"
	if driver == "postgres" {
		blob = "BYTEA"
	}
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS record_files (
		dataset_id TEXT NOT NULL,
		path TEXT NOT NULL,
		content %s NOT NULL,
		size BIGINT NOT NULL,
		sha256 TEXT NOT NULL,
		uploaded_at BIGINT NOT NULL,
		PRIMARY KEY (dataset_id, path)
	)`, blob)

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// ListFiles returns the files of a dataset ordered by path
func (s *Store) ListFiles(ctx context.Context, datasetID core.DatasetID) ([]ports.FileRef, error) {
	query := s.db.Rebind(`SELECT path, size, sha256, uploaded_at
	FROM record_files WHERE dataset_id = ? ORDER BY path`)

	var rows []fileRow
	if err := s.db.SelectContext(ctx, &rows, query, datasetID.String()); err != nil {
		return nil, errors.DatabaseError("failed to list record files", err)
	}

	files := make([]ports.FileRef, len(rows))
	for i, row := range rows {
		files[i] = ports.FileRef{
			Path:      row.Path,
			Size:      row.Size,
			SHA256:    row.SHA256,
			UpdatedAt: time.UnixMilli(row.UploadedAt).UTC(),
		}
	}
	return files, nil
}

// Download writes one stored file below destDir after checking its digest
func (s *Store) Download(ctx context.Context, datasetID core.DatasetID, file ports.FileRef, destDir string) (string, error) {
	storePath, err := ports.CleanStorePath(file.Path)
	if err != nil {
		return "", err
	}

	var row struct {
		Content []byte `db:"content"`
		SHA256  string `db:"sha256"`
	}
	query := s.db.Rebind(`SELECT content, sha256 FROM record_files WHERE dataset_id = ? AND path = ?`)
	if err := s.db.GetContext(ctx, &row, query, datasetID.String(), storePath); err != nil {
		if err == sql.ErrNoRows {
			return "", core.NewNotFoundError("record file", datasetID.String()+"/"+storePath)
		}
		return "", errors.DatabaseError("failed to read record file", err)
	}
	if !core.NewHash(row.Content).Equals(core.Hash(row.SHA256)) {
		return "", fmt.Errorf("%w: %s/%s: stored checksum mismatch", core.ErrRecordMalformed, datasetID, storePath)
	}

	localPath := filepath.Join(destDir, filepath.FromSlash(storePath))
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	if err := os.WriteFile(localPath, row.Content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", localPath, err)
	}
	return localPath, nil
}

// Upload inserts or replaces a file in the dataset
func (s *Store) Upload(ctx context.Context, datasetID core.DatasetID, localPath, destPath string) error {
	storePath, err := ports.CleanStorePath(destPath)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read upload source: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO record_files (dataset_id, path, content, size, sha256, uploaded_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (dataset_id, path) DO UPDATE SET
		content = excluded.content,
		size = excluded.size,
		sha256 = excluded.sha256,
		uploaded_at = excluded.uploaded_at`)

	_, err = s.db.ExecContext(ctx, query,
		datasetID.String(), storePath, content, int64(len(content)), core.NewHash(content).String(), time.Now().UnixMilli(),
	)
	if err != nil {
		return errors.DatabaseError("failed to store record file", err)
	}
	s.logger.Info("stored %s in %s/%s", filepath.Base(localPath), datasetID, storePath)
	return nil
}

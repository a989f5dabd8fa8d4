// Package storage provides SQLite implementation of the VerseStore interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/verses"
)

// ErrVerseNotFound is returned by GetVerse for an unknown reference.
var ErrVerseNotFound = errors.New("verse not found")

// SQLiteStorage implements VerseStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" keeps the database
// in process.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	memory := dbPath == ":memory:"
	if !memory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if memory {
		// each connection would see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS verses (
		chapter INTEGER NOT NULL,
		verse INTEGER NOT NULL,
		ref TEXT NOT NULL,
		arabic TEXT,
		english TEXT,
		roots TEXT,
		meanings TEXT,
		footnote TEXT,
		subtitle TEXT,
		extra TEXT,
		PRIMARY KEY (chapter, verse)
	);

	CREATE TABLE IF NOT EXISTS verse_roots (
		root TEXT NOT NULL,
		chapter INTEGER NOT NULL,
		verse INTEGER NOT NULL,
		FOREIGN KEY (chapter, verse) REFERENCES verses(chapter, verse) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_verse_roots_root ON verse_roots(root);
	`
	_, err := db.Exec(schema)
	return err
}

const verseColumns = `v.ref, v.arabic, v.english, v.roots, v.meanings, v.footnote, v.subtitle, v.extra`

// ReplaceVerses clears the tables and inserts verses in a single transaction.
// Verses whose reference does not parse are skipped.
func (s *SQLiteStorage) ReplaceVerses(ctx context.Context, list []*models.Verse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM verse_roots`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM verses`); err != nil {
		return err
	}

	verseStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO verses (chapter, verse, ref, arabic, english, roots, meanings, footnote, subtitle, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer verseStmt.Close()

	rootStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO verse_roots (root, chapter, verse) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer rootStmt.Close()

	for _, v := range list {
		if v == nil {
			continue
		}
		ref, err := verses.ParseRef(v.Ref)
		if err != nil {
			continue
		}
		var extra string
		if len(v.Extra) > 0 {
			data, err := json.Marshal(v.Extra)
			if err != nil {
				return fmt.Errorf("failed to marshal extra fields of %s: %w", v.Ref, err)
			}
			extra = string(data)
		}
		if _, err := verseStmt.ExecContext(ctx, ref.Chapter, ref.Verse, ref.String(),
			v.Arabic, v.English, v.Roots, v.Meanings, v.Footnote, v.Subtitle, extra); err != nil {
			return err
		}
		for _, root := range verses.SplitRoots(v.Roots) {
			if _, err := rootStmt.ExecContext(ctx, root, ref.Chapter, ref.Verse); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetVerse returns one verse.
func (s *SQLiteStorage) GetVerse(ctx context.Context, chapter, verse int) (*models.Verse, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+verseColumns+` FROM verses v WHERE v.chapter = ? AND v.verse = ?`, chapter, verse)
	v, err := scanVerse(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d:%d", ErrVerseNotFound, chapter, verse)
	}
	return v, err
}

// VerseRange returns verses start..end of chapter ordered by verse number.
func (s *SQLiteStorage) VerseRange(ctx context.Context, chapter, start, end int) ([]*models.Verse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+verseColumns+` FROM verses v
		 WHERE v.chapter = ? AND v.verse BETWEEN ? AND ?
		 ORDER BY v.verse`,
		chapter, start, end,
	)
	if err != nil {
		return nil, err
	}
	return collectVerses(rows)
}

// SearchRoots returns verses whose roots include any of roots.
func (s *SQLiteStorage) SearchRoots(ctx context.Context, roots []string, limit int) ([]*models.Verse, error) {
	if len(roots) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultRootLimit
	}
	args := make([]any, 0, len(roots)+1)
	for _, r := range roots {
		args = append(args, r)
	}
	args = append(args, limit)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(roots)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+verseColumns+` FROM verses v
		 WHERE EXISTS (
			SELECT 1 FROM verse_roots r
			WHERE r.chapter = v.chapter AND r.verse = v.verse AND r.root IN (`+placeholders+`)
		 )
		 ORDER BY v.chapter, v.verse LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	return collectVerses(rows)
}

// CountVerses returns the total number of verses.
func (s *SQLiteStorage) CountVerses(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verses`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVerse(row scanner) (*models.Verse, error) {
	var v models.Verse
	var arabic, english, roots, meanings, footnote, subtitle, extra sql.NullString
	if err := row.Scan(&v.Ref, &arabic, &english, &roots, &meanings, &footnote, &subtitle, &extra); err != nil {
		return nil, err
	}
	v.Arabic, v.English, v.Roots = arabic.String, english.String, roots.String
	v.Meanings, v.Footnote, v.Subtitle = meanings.String, footnote.String, subtitle.String
	if extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &v.Extra); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra fields of %s: %w", v.Ref, err)
		}
	}
	return &v, nil
}

func collectVerses(rows *sql.Rows) ([]*models.Verse, error) {
	defer rows.Close()
	var out []*models.Verse
	for rows.Next() {
		v, err := scanVerse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	createPicturesTable = `CREATE TABLE IF NOT EXISTS pictures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		animal TEXT NOT NULL,
		mime TEXT NOT NULL,
		data BLOB NOT NULL,
		source_url TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`
	createAnimalIndex = `CREATE INDEX IF NOT EXISTS idx_pictures_animal_created_at ON pictures(animal, created_at)`
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	if path := sqliteFilePath(connectionString); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to :memory: opens its own empty database
	if isInMemory(connectionString) {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	for _, stmt := range []string{createPicturesTable, createAnimalIndex} {
		if _, err := s.db.Exec(stmt); err != nil {
			return nil, err
		}
	}
	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) InsertPicture(ctx context.Context, picture *Picture) (int64, error) {
	if picture == nil {
		return 0, errors.New("picture must not be nil")
	}
	data := picture.Data
	if data == nil {
		data = []byte{}
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO pictures (animal, mime, data, source_url, created_at) VALUES (?, ?, ?, ?, ?)",
		picture.Animal, picture.Mime, data, picture.SourceURL, picture.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert picture: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted picture id: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) DeleteAllPictures(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after a successful commit
	}()

	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM pictures").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pictures: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM pictures"); err != nil {
		return 0, fmt.Errorf("failed to delete pictures: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return count, nil
}

func (s *SQLiteDatabase) GetPictureByID(ctx context.Context, id int64) (*Picture, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, animal, mime, data, source_url, created_at FROM pictures WHERE id = ?", id)

	var picture Picture
	err := row.Scan(&picture.ID, &picture.Animal, &picture.Mime, &picture.Data, &picture.SourceURL, &picture.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load picture %d: %w", id, err)
	}
	return &picture, nil
}

func (s *SQLiteDatabase) GetLastPictureByAnimal(ctx context.Context, animal string) (*PictureMeta, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, animal, mime, source_url, created_at
		FROM pictures
		WHERE animal = ?
		ORDER BY id DESC
		LIMIT 1`, animal)

	var meta PictureMeta
	err := row.Scan(&meta.ID, &meta.Animal, &meta.Mime, &meta.SourceURL, &meta.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last picture for %s: %w", animal, err)
	}
	return &meta, nil
}

func (s *SQLiteDatabase) CountPicturesByAnimal(ctx context.Context) (*PictureStats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT animal, COUNT(*) FROM pictures GROUP BY animal")
	if err != nil {
		return nil, fmt.Errorf("failed to count pictures: %w", err)
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	stats := &PictureStats{}
	for rows.Next() {
		var animal string
		var count int64
		if err := rows.Scan(&animal, &count); err != nil {
			return nil, err
		}
		switch animal {
		case "cat":
			stats.Cat = count
		case "dog":
			stats.Dog = count
		case "bear":
			stats.Bear = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.Total = stats.Cat + stats.Dog + stats.Bear
	return stats, nil
}

func isInMemory(connectionString string) bool {
	return connectionString == ":memory:" ||
		strings.HasPrefix(connectionString, "file::memory:") ||
		strings.Contains(connectionString, "mode=memory")
}

// sqliteFilePath returns the on-disk path of a DSN, or "" for in-memory databases.
func sqliteFilePath(connectionString string) string {
	if connectionString == "" || isInMemory(connectionString) {
		return ""
	}
	path := strings.TrimPrefix(connectionString, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"bag-reindex/internal/bag"

	_ "github.com/mattn/go-sqlite3"
)

const (
	SQLiteStorageID  = "sqlite3"
	SQLiteExtension  = ".db3"
	sqliteDriverName = "sqlite3"
)

var ErrNotSegment = errors.New("not a sqlite3 bag segment")

func SQLiteBackend() Backend {
	return Backend{
		ID:        SQLiteStorageID,
		Extension: SQLiteExtension,
		Open: func(ctx context.Context, path string) (Storage, error) {
			s, err := OpenSQLite(ctx, path)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

type SQLiteStorage struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens a .db3 segment read-only and checks that it carries the
// topics and messages tables.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStorage, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat segment %s: %w", path, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotSegment, path)
	}

	db, err := sql.Open(sqliteDriverName, sqliteDSN(path, "ro"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite segment: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite segment %s: %w", path, err)
	}

	s := &SQLiteStorage{path: path, db: db}
	if err := s.checkSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteDSN builds a file: URI for path. Characters that URIs treat
// specially (#, ?, %) are escaped so any file name opens as itself.
func sqliteDSN(path, mode string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=" + mode}
	return u.String()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) checkSchema(ctx context.Context) error {
	for _, table := range []string{"topics", "messages"} {
		var name string
		err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err == nil {
			continue
		}
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s has no %s table", ErrNotSegment, s.path, table)
		}
		return fmt.Errorf("inspect %s table in %s: %w", table, s.path, err)
	}
	return nil
}

func (s *SQLiteStorage) hasQoSColumn(ctx context.Context) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(topics)`)
	if err != nil {
		return false, fmt.Errorf("inspect topics columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scan topics column: %w", err)
		}
		if name == "offered_qos_profiles" {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate topics columns: %w", err)
	}
	return false, nil
}

// Metadata derives the session metadata embedded in this segment: one entry
// per topic with its message count, and the time span of all messages.
func (s *SQLiteStorage) Metadata(ctx context.Context) (bag.Metadata, error) {
	hasQoS, err := s.hasQoSColumn(ctx)
	if err != nil {
		return bag.Metadata{}, err
	}
	qosExpr := "''"
	if hasQoS {
		qosExpr = "COALESCE(topics.offered_qos_profiles, '')"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT topics.name, topics.type, topics.serialization_format, `+qosExpr+`,
			COUNT(messages.id), MIN(messages.timestamp), MAX(messages.timestamp)
		FROM topics
		LEFT JOIN messages ON messages.topic_id = topics.id
		GROUP BY topics.id
		ORDER BY topics.id
	`)
	if err != nil {
		return bag.Metadata{}, fmt.Errorf("query topics in %s: %w", s.path, err)
	}
	defer rows.Close()

	meta := bag.Metadata{
		Version:           bag.CurrentVersion,
		StorageIdentifier: SQLiteStorageID,
		RelativeFilePaths: []string{filepath.Base(s.path)},
	}

	var (
		minTS, maxTS int64
		seen         bool
	)
	for rows.Next() {
		var (
			info       bag.TopicInformation
			count      int64
			first, end sql.NullInt64
		)
		if err := rows.Scan(
			&info.Topic.Name,
			&info.Topic.Type,
			&info.Topic.SerializationFormat,
			&info.Topic.OfferedQoSProfiles,
			&count,
			&first,
			&end,
		); err != nil {
			return bag.Metadata{}, fmt.Errorf("scan topic row: %w", err)
		}
		info.MessageCount = uint64(count)
		meta.MessageCount += info.MessageCount
		meta.TopicsWithMessageCount = append(meta.TopicsWithMessageCount, info)

		if first.Valid && (!seen || first.Int64 < minTS) {
			minTS = first.Int64
		}
		if end.Valid && (!seen || end.Int64 > maxTS) {
			maxTS = end.Int64
		}
		if first.Valid {
			seen = true
		}
	}
	if err := rows.Err(); err != nil {
		return bag.Metadata{}, fmt.Errorf("iterate topics in %s: %w", s.path, err)
	}

	if seen {
		meta.StartingTime = time.Unix(0, minTS)
		meta.Duration = time.Duration(maxTS - minTS)
	} else {
		meta.StartingTime = time.Unix(0, 0)
	}

	if stat, err := os.Stat(s.path); err == nil {
		meta.BagSize = uint64(stat.Size())
	}
	return meta, nil
}

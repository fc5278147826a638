package data

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// WhatsApp desktop ChatStorage.sqlite layout (Core Data tables)
const (
	fetchSinceQuery = `
		SELECT m.Z_PK,
		       COALESCE(NULLIF(s.ZPARTNERNAME, ''), m.ZPUSHNAME, ''),
		       COALESCE(m.ZTEXT, ''),
		       COALESCE(m.ZFROMJID, ''),
		       COALESCE(s.ZCONTACTJID, '')
		FROM ZWAMESSAGE m
		LEFT JOIN ZWACHATSESSION s ON s.Z_PK = m.ZCHATSESSION
		WHERE m.Z_PK > ? AND COALESCE(m.ZISFROMME, 0) = 0
		ORDER BY m.Z_PK ASC
		LIMIT ?`

	maxCursorQuery = `SELECT COALESCE(MAX(Z_PK), 0) FROM ZWAMESSAGE`
)

// chatDBRepo implements the message store over the local SQLite database
type chatDBRepo struct {
	path string
	db   *sql.DB
}

// NewChatDBRepo creates a message store reading dbPath.
// The database is opened lazily and read-only, so a missing file only
// surfaces as fetch errors.
func NewChatDBRepo(dbPath string) repo.MessageStore {
	return &chatDBRepo{path: dbPath}
}

func (r *chatDBRepo) open() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	dsn := (&url.URL{
		Scheme:   "file",
		Path:     r.path,
		RawQuery: "mode=ro&_pragma=busy_timeout(3000)",
	}).String()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open message store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open message store %s: %w", r.path, err)
	}

	r.db = db
	return db, nil
}

// FetchSince returns inbound rows after cursor in ascending order
func (r *chatDBRepo) FetchSince(ctx context.Context, cursor int64, limit int) ([]domain.IncomingMessage, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fetchSinceQuery, cursor, limit)
	if err != nil {
		r.reset()
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var result []domain.IncomingMessage
	for rows.Next() {
		var m domain.IncomingMessage
		if err := rows.Scan(&m.Cursor, &m.SenderName, &m.Text, &m.SenderID, &m.ChatID); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return result, nil
}

// MaxCursor returns the largest message primary key
func (r *chatDBRepo) MaxCursor(ctx context.Context) (int64, error) {
	db, err := r.open()
	if err != nil {
		return 0, err
	}

	var maxPK int64
	if err := db.QueryRowContext(ctx, maxCursorQuery).Scan(&maxPK); err != nil {
		r.reset()
		return 0, fmt.Errorf("failed to query max cursor: %w", err)
	}
	return maxPK, nil
}

// reset drops the connection so the next call reopens the file; the store
// may be replaced on disk by the owning application
func (r *chatDBRepo) reset() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

// Close closes the database connection
func (r *chatDBRepo) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/chatrelay/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema or seed rows.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// ApplySchema creates the tables used by the store if they do not exist.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateMessage persists a new unread message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg store.NewMessage) (*store.Message, error) {
	now := s.now().UTC()
	sentAt := now
	if msg.SentAt != nil {
		sentAt = msg.SentAt.UTC()
	}

	created := &store.Message{
		ID:             uuid.New(),
		ChatID:         msg.ChatID,
		Text:           msg.Text,
		FromSpecialist: msg.FromSpecialist,
		Read:           false,
		SentAt:         sentAt,
		CreatedAt:      now,
	}

	query := `
		INSERT INTO messages (id, chat_id, text, is_from_specialist, is_read, sent_at, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		created.ID.String(),
		created.ChatID.String(),
		created.Text,
		created.FromSpecialist,
		created.SentAt,
		created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return created, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id uuid.UUID) (*store.Message, error) {
	query := `
		SELECT id, chat_id, text, is_from_specialist, is_read, sent_at, created_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	return msg, nil
}

// MarkRead sets the read flag on a message and returns the updated row.
func (s *SQLiteStore) MarkRead(ctx context.Context, id uuid.UUID) (*store.Message, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE messages SET is_read = 1 WHERE id = ?`, id.String())
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
	}

	return s.GetMessage(ctx, id)
}

// ListMessages retrieves messages of a chat, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]*store.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if before != nil {
		query := `
			SELECT id, chat_id, text, is_from_specialist, is_read, sent_at, created_at
			FROM messages
			WHERE chat_id = ? AND created_at < ?
			ORDER BY created_at DESC
			LIMIT ?
		`
		rows, err = s.db.QueryContext(ctx, query, chatID.String(), before.UTC(), limit)
	} else {
		query := `
			SELECT id, chat_id, text, is_from_specialist, is_read, sent_at, created_at
			FROM messages
			WHERE chat_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		`
		rows, err = s.db.QueryContext(ctx, query, chatID.String(), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	if err := row.Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.Text,
		&msg.FromSpecialist,
		&msg.Read,
		&msg.SentAt,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

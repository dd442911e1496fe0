package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrNotFound is returned when a conversation does not exist or is not
// owned by the given user.
var ErrNotFound = errors.New("conversation not found")

// ErrRevisionConflict is returned when a save races with another writer:
// the conversation's revision no longer matches the one that was loaded.
var ErrRevisionConflict = errors.New("conversation revision conflict")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS conversations (
        conversation_id TEXT PRIMARY KEY, -- "chat_" + unix millis
        user_id TEXT NOT NULL,
        title TEXT,
        revision INTEGER NOT NULL DEFAULT 1,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id);

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        conversation_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
        content TEXT NOT NULL,
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (conversation_id) REFERENCES conversations (conversation_id)
    );

    CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id);

    CREATE TABLE IF NOT EXISTS doctors (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        speciality TEXT NOT NULL,
        degree TEXT NOT NULL,
        experience TEXT NOT NULL,
        fees INTEGER NOT NULL,
        address_line1 TEXT NOT NULL DEFAULT '',
        address_line2 TEXT NOT NULL DEFAULT '',
        available BOOLEAN NOT NULL DEFAULT TRUE
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Conversation methods

// CreateConversation inserts a new conversation together with its initial
// messages in one transaction. The conversation_id primary key enforces the
// store-wide uniqueness of identifiers.
func (s *SQLiteStore) CreateConversation(conv *Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	conv.Revision = 1

	_, err = tx.Exec(
		"INSERT INTO conversations (conversation_id, user_id, title, revision, created_at) VALUES (?, ?, ?, ?, ?)",
		conv.ConversationID, conv.UserID, conv.Title, conv.Revision, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	if err := insertMessages(tx, conv.ConversationID, conv.Messages); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendMessages adds messages to an existing conversation. The update is
// guarded by a compare-and-swap on the revision counter: if another writer
// saved the conversation since it was loaded, ErrRevisionConflict is
// returned and nothing is written.
func (s *SQLiteStore) AppendMessages(conversationID, userID string, expectedRevision int64, messages []Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"UPDATE conversations SET revision = revision + 1 WHERE conversation_id = ? AND user_id = ? AND revision = ?",
		conversationID, userID, expectedRevision,
	)
	if err != nil {
		return fmt.Errorf("failed to bump conversation revision: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		// Either the conversation is gone or a concurrent writer won.
		var exists int
		err := tx.QueryRow(
			"SELECT COUNT(*) FROM conversations WHERE conversation_id = ? AND user_id = ?",
			conversationID, userID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check conversation existence: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrRevisionConflict
	}

	if err := insertMessages(tx, conversationID, messages); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMessages(tx *sql.Tx, conversationID string, messages []Message) error {
	stmt, err := tx.Prepare("INSERT INTO messages (id, conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i := range messages {
		msg := &messages[i]
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		msg.ConversationID = conversationID
		if _, err := stmt.Exec(msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Timestamp); err != nil {
			return fmt.Errorf("failed to execute message insert: %w", err)
		}
	}
	return nil
}

// GetConversation loads a conversation and its ordered messages, scoped to
// the owning user. Returns (nil, nil) when no such conversation exists.
func (s *SQLiteStore) GetConversation(conversationID, userID string) (*Conversation, error) {
	var conv Conversation
	var title sql.NullString
	err := s.db.QueryRow(
		"SELECT conversation_id, user_id, title, revision, created_at FROM conversations WHERE conversation_id = ? AND user_id = ?",
		conversationID, userID,
	).Scan(&conv.ConversationID, &conv.UserID, &title, &conv.Revision, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if title.Valid {
		conv.Title = &title.String
	}

	messages, err := s.getMessages(conv.ConversationID)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	return &conv, nil
}

// GetConversationsByUserID returns every conversation owned by the user,
// most recent first, each with its full message list.
func (s *SQLiteStore) GetConversationsByUserID(userID string) ([]Conversation, error) {
	rows, err := s.db.Query(
		"SELECT conversation_id, user_id, title, revision, created_at FROM conversations WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var conv Conversation
		var title sql.NullString
		if err := rows.Scan(&conv.ConversationID, &conv.UserID, &title, &conv.Revision, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		if title.Valid {
			conv.Title = &title.String
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation rows: %w", err)
	}

	for i := range conversations {
		messages, err := s.getMessages(conversations[i].ConversationID)
		if err != nil {
			return nil, err
		}
		conversations[i].Messages = messages
	}
	return conversations, nil
}

func (s *SQLiteStore) getMessages(conversationID string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT id, conversation_id, role, content, timestamp FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC, rowid ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) UpdateConversationTitle(conversationID, userID, title string) error {
	stmt, err := s.db.Prepare("UPDATE conversations SET title = ? WHERE conversation_id = ? AND user_id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare title update: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(title, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to execute title update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Doctor directory methods

// ListAvailableDoctors returns the doctors currently accepting patients.
// The chat core reads this snapshot once per new conversation.
func (s *SQLiteStore) ListAvailableDoctors() ([]Doctor, error) {
	rows, err := s.db.Query(
		"SELECT id, name, speciality, degree, experience, fees, address_line1, address_line2, available FROM doctors WHERE available = TRUE ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}
	defer rows.Close()

	var doctors []Doctor
	for rows.Next() {
		var doc Doctor
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Speciality, &doc.Degree, &doc.Experience, &doc.Fees, &doc.AddressLine1, &doc.AddressLine2, &doc.Available); err != nil {
			return nil, fmt.Errorf("failed to scan doctor row: %w", err)
		}
		doctors = append(doctors, doc)
	}
	return doctors, rows.Err()
}

func (s *SQLiteStore) createDoctor(doc *Doctor) error {
	stmt, err := s.db.Prepare("INSERT INTO doctors (name, speciality, degree, experience, fees, address_line1, address_line2, available) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare doctor insert: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(doc.Name, doc.Speciality, doc.Degree, doc.Experience, doc.Fees, doc.AddressLine1, doc.AddressLine2, doc.Available)
	if err != nil {
		return fmt.Errorf("failed to execute doctor insert: %w", err)
	}
	doc.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ClearDoctors() error {
	_, err := s.db.Exec("DELETE FROM doctors")
	if err != nil {
		return fmt.Errorf("failed to delete doctors: %w", err)
	}
	return nil
}

// SeedDoctorsFromFile clears the directory and reloads it from a JSON file
// holding an array of doctors. It is a one-off loading utility invoked via
// the -seed flag.
func (s *SQLiteStore) SeedDoctorsFromFile(filePath string) (int, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file %s: %w", filePath, err)
	}

	var doctors []Doctor
	if err := json.Unmarshal(contentBytes, &doctors); err != nil {
		return 0, fmt.Errorf("failed to parse seed file %s: %w", filePath, err)
	}
	if len(doctors) == 0 {
		log.Println("Seed file contains no doctors, directory will be empty.")
	}

	if err := s.ClearDoctors(); err != nil {
		return 0, err
	}

	count := 0
	for i := range doctors {
		if err := s.createDoctor(&doctors[i]); err != nil {
			log.Printf("Failed to store doctor %d (%s): %v. Skipping.", i+1, doctors[i].Name, err)
			continue
		}
		count++
	}
	log.Printf("Seeded %d doctors.", count)
	return count, nil
}

// SeedDoctors inserts the given doctors without touching existing rows.
// Used by tests and programmatic setup.
func (s *SQLiteStore) SeedDoctors(doctors []Doctor) error {
	for i := range doctors {
		if err := s.createDoctor(&doctors[i]); err != nil {
			return err
		}
	}
	return nil
}

// Package storage persists and retrieves conversation messages in SQLite.
// It executes the composed queries produced by pkg/query and implements the
// label-store collaborator the label filter resolves names through.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rubiojr/convos/pkg/db"
	"github.com/rubiojr/convos/pkg/query"
)

// Message is a stored conversation message together with the identifying
// fields of its contact.
type Message struct {
	ID           string    `json:"id"`
	Body         string    `json:"body"`
	FlowLabel    string    `json:"flow_label,omitempty"`
	ContactID    int64     `json:"contact_id"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	InsertedAt   time.Time `json:"inserted_at"`
}

// Contact is the sender/receiver a message belongs to.
type Contact struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Group is a collection of contacts.
type Group struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// FlowLabel is a named label flows attach to messages.
type FlowLabel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Storage wraps the SQLite database holding messages, contacts, groups and
// flow labels.
type Storage struct {
	db       *sql.DB
	notifier func(Message)
}

// Open opens (creating if needed) the database at dbPath and brings its
// schema up to date.
func Open(dbPath string) (*Storage, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(sqlDB); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Storage{db: sqlDB}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection, for migration tooling.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// SetNotifier registers a callback invoked for every stored message. Used to
// feed the realtime firehose; must be set before concurrent writes start.
func (s *Storage) SetNotifier(fn func(Message)) {
	s.notifier = fn
}

// messageColumns are the columns every composed search query selects. The
// contacts relation is attached to the base query with a LEFT JOIN so that
// the builders' predicates can target alias "c" without re-joining.
const messageColumns = `m.id, m.body, m.flow_label, m.contact_id,
	COALESCE(c.name, ''), COALESCE(c.phone, ''), m.inserted_at`

// BaseQuery returns the query every search starts from: all messages, with
// the contact relation available under its alias.
func (s *Storage) BaseQuery() query.Query {
	return query.NewMessageQuery().
		Join(query.AliasContacts, "LEFT JOIN contacts c ON c.id = m.contact_id")
}

// SearchMessages executes a composed query, newest first.
func (s *Storage) SearchMessages(q query.Query, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = 30
	}
	sqlQuery := q.SQL(messageColumns) + "\nORDER BY m.inserted_at DESC\nLIMIT ? OFFSET ?"
	args := append(q.Args(), limit, offset)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Body, &msg.FlowLabel, &msg.ContactID,
			&msg.ContactName, &msg.ContactPhone, &msg.InsertedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// StoreMessage stores a single message.
func (s *Storage) StoreMessage(msg Message) error {
	return s.StoreMessages([]Message{msg})
}

// StoreMessages stores a batch of messages in one transaction. Messages
// without an id get a generated one; messages without a timestamp are stamped
// with the current time. Timestamps are normalized to UTC so stored values
// sort and compare by instant.
func (s *Storage) StoreMessages(messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				fmt.Printf("Warning: failed to rollback transaction: %v\n", err)
			}
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO messages (id, body, flow_label, contact_id, inserted_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			fmt.Printf("Warning: failed to close statement: %v\n", err)
		}
	}()

	for i := range messages {
		msg := &messages[i]
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
		if msg.InsertedAt.IsZero() {
			msg.InsertedAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(msg.ID, msg.Body, msg.FlowLabel, msg.ContactID,
			msg.InsertedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	if s.notifier != nil {
		for _, msg := range messages {
			s.notifier(msg)
		}
	}
	return nil
}

// StoreContact inserts or updates a contact.
func (s *Storage) StoreContact(contact Contact) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO contacts (id, name, phone) VALUES (?, ?, ?)
	`, contact.ID, contact.Name, contact.Phone)
	if err != nil {
		return fmt.Errorf("storing contact %d: %w", contact.ID, err)
	}
	return nil
}

// StoreGroup inserts or updates a group.
func (s *Storage) StoreGroup(group Group) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO groups (id, label) VALUES (?, ?)
	`, group.ID, group.Label)
	if err != nil {
		return fmt.Errorf("storing group %d: %w", group.ID, err)
	}
	return nil
}

// AddContactToGroup records a group membership. Adding an existing
// membership is a no-op.
func (s *Storage) AddContactToGroup(contactID, groupID int64) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO contact_groups (contact_id, group_id) VALUES (?, ?)
	`, contactID, groupID)
	if err != nil {
		return fmt.Errorf("adding contact %d to group %d: %w", contactID, groupID, err)
	}
	return nil
}

// ListGroups returns all groups ordered by id.
func (s *Storage) ListGroups() ([]Group, error) {
	rows, err := s.db.Query("SELECT id, label FROM groups ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Label); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListContacts returns all contacts ordered by id.
func (s *Storage) ListContacts() ([]Contact, error) {
	rows, err := s.db.Query("SELECT id, name, phone FROM contacts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone); err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ListMemberships returns all (contact_id, group_id) pairs.
func (s *Storage) ListMemberships() ([][2]int64, error) {
	rows, err := s.db.Query("SELECT contact_id, group_id FROM contact_groups ORDER BY contact_id, group_id")
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var pairs [][2]int64
	for rows.Next() {
		var contactID, groupID int64
		if err := rows.Scan(&contactID, &groupID); err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		pairs = append(pairs, [2]int64{contactID, groupID})
	}
	return pairs, rows.Err()
}

// GetStats returns storage statistics.
func (s *Storage) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts := map[string]string{
		"total_messages":    "SELECT COUNT(*) FROM messages",
		"total_contacts":    "SELECT COUNT(*) FROM contacts",
		"total_groups":      "SELECT COUNT(*) FROM groups",
		"total_flow_labels": "SELECT COUNT(*) FROM flow_labels",
	}
	for key, q := range counts {
		var n int
		if err := s.db.QueryRow(q).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", strings.TrimPrefix(key, "total_"), err)
		}
		stats[key] = n
	}

	var oldest, newest sql.NullString
	err := s.db.QueryRow("SELECT MIN(inserted_at), MAX(inserted_at) FROM messages").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("getting message date range: %w", err)
	}
	if oldest.Valid && newest.Valid {
		oldestAt, err := time.Parse(time.RFC3339, oldest.String)
		if err != nil {
			return nil, fmt.Errorf("parsing oldest message time: %w", err)
		}
		newestAt, err := time.Parse(time.RFC3339, newest.String)
		if err != nil {
			return nil, fmt.Errorf("parsing newest message time: %w", err)
		}
		stats["oldest_message"] = oldestAt
		stats["newest_message"] = newestAt
	}

	return stats, nil
}

// Optimize runs SQLite's optimizer.
func (s *Storage) Optimize() error {
	_, err := s.db.Exec("PRAGMA optimize")
	return err
}

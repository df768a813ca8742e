// Package journal records swap and liquidity submissions in a local sqlite file.
package journal

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Entry is one submission attempt. Params holds the request as entered.
type Entry struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Deployment string            `json:"deployment"`
	ChainID    string            `json:"chain_id"`
	Account    string            `json:"account"`
	Status     Status            `json:"status"`
	Params     map[string]string `json:"params,omitempty"`
	TxHashes   []string          `json:"tx_hashes,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
	Error      string            `json:"error,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}

func NewID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("sub_%d", time.Now().UnixNano())
	}
	return "sub_" + hex.EncodeToString(b)
}

// NewEntry starts a pending entry stamped with the current time.
func NewEntry(kind, deployment, chainID, account string, params map[string]string) Entry {
	now := time.Now().UTC().Format(time.RFC3339)
	return Entry{
		ID:         NewID(),
		Kind:       kind,
		Deployment: deployment,
		ChainID:    chainID,
		Account:    account,
		Status:     StatusPending,
		Params:     params,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (e *Entry) Touch() {
	e.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Open creates the journal database and its lock file if needed. The lock
// serializes writers across concurrent swapdesk processes.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			deployment TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_submissions_updated ON submissions(updated_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(path + ".lock")}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(entry Entry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("save entry: missing id")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock journal: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	createdUnix := parseUnix(entry.CreatedAt)
	updatedUnix := parseUnix(entry.UpdatedAt)

	_, err = s.db.Exec(`
		INSERT INTO submissions (id, kind, deployment, status, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, entry.ID, entry.Kind, entry.Deployment, string(entry.Status), createdUnix, updatedUnix, payload)
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	return nil
}

var ErrNotFound = errors.New("journal entry not found")

func (s *Store) Get(id string) (Entry, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM submissions WHERE id = ?", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Entry{}, fmt.Errorf("read entry: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode entry payload: %w", err)
	}
	return entry, nil
}

// List returns the newest entries first. An empty status matches all.
func (s *Store) List(status Status, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.Query("SELECT payload FROM submissions ORDER BY updated_at DESC, rowid DESC LIMIT ?", limit)
	} else {
		rows, err = s.db.Query("SELECT payload FROM submissions WHERE status = ? ORDER BY updated_at DESC, rowid DESC LIMIT ?", string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode entry row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}
	return entries, nil
}

func parseUnix(v string) int64 {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Now().UTC().Unix()
	}
	return t.UTC().Unix()
}

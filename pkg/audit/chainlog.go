// Package audit provides a tamper-evident audit trail: each record carries a
// sha256 over the previous record's hash, its timestamp and its payload, so
// any edit or deletion breaks the chain.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Record is one link in the audit chain.
type Record struct {
	Seq          int64  `json:"seq"`
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Payload      string `json:"payload"`
	Hash         string `json:"hash"`
}

// ChainLog appends hash-chained records to a sqlite database. Appends are
// serialized; the chain head is cached in memory after Open.
type ChainLog struct {
	mu   sync.Mutex
	db   *sql.DB
	head string
}

// Open opens (creating if necessary) the audit database at path and loads
// the current chain head.
func Open(path string) (*ChainLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			previous_hash TEXT NOT NULL,
			payload TEXT NOT NULL,
			hash TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}

	head := genesisHash
	err = db.QueryRow(`SELECT hash FROM audit_records ORDER BY seq DESC LIMIT 1`).Scan(&head)
	if err != nil && err != sql.ErrNoRows {
		db.Close()
		return nil, fmt.Errorf("failed to load chain head: %w", err)
	}

	return &ChainLog{db: db, head: head}, nil
}

func (c *ChainLog) Close() error {
	return c.db.Close()
}

// Append adds payload to the chain and persists it.
func (c *ChainLog) Append(ctx context.Context, payload string) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &Record{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		PreviousHash: c.head,
		Payload:      payload,
	}
	rec.Hash = hashRecord(rec.PreviousHash, rec.Timestamp, rec.Payload)

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO audit_records (timestamp, previous_hash, payload, hash)
		VALUES (?, ?, ?, ?)
	`, rec.Timestamp, rec.PreviousHash, rec.Payload, rec.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to append audit record: %w", err)
	}
	rec.Seq, _ = res.LastInsertId()

	c.head = rec.Hash
	return rec, nil
}

// Load returns every record in chain order.
func (c *ChainLog) Load(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT seq, timestamp, previous_hash, payload, hash
		FROM audit_records ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Seq, &r.Timestamp, &r.PreviousHash, &r.Payload, &r.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Verify walks records and reports the first broken link, if any.
func Verify(records []Record) error {
	prev := genesisHash
	for i, r := range records {
		if r.PreviousHash != prev {
			return fmt.Errorf("record %d: previous hash mismatch", i)
		}
		if hashRecord(r.PreviousHash, r.Timestamp, r.Payload) != r.Hash {
			return fmt.Errorf("record %d: hash mismatch", i)
		}
		prev = r.Hash
	}
	return nil
}

func hashRecord(previousHash, timestamp, payload string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{previousHash, timestamp, payload}, "|")))
	return hex.EncodeToString(sum[:])
}

// internal/histlog/log.go
package histlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scribeworks/scribe/internal/logger"
)

// Entry is one edit-history record. Entries are append-only and never
// mutated after being written.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	OriginalText string    `json:"original_text,omitempty"`
	NewText      string    `json:"new_text,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	Model        string    `json:"model,omitempty"`
	Delta        int       `json:"delta,omitempty"` // net length change for manual edits
}

// Log writes history entries local-first: the JSONL file on disk is
// authoritative and its write must succeed; the remote mirror is
// best-effort and its failures are logged and swallowed.
type Log struct {
	mu        sync.Mutex
	localPath string
	remoteURL string
	http      *http.Client
}

// Config holds settings for the history log.
type Config struct {
	LocalPath     string
	RemoteURL     string // empty disables the mirror
	RemoteTimeout time.Duration
}

// New creates a history log, creating the local file's directory if needed.
func New(cfg Config) (*Log, error) {
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("history log requires a local path")
	}
	if dir := filepath.Dir(cfg.LocalPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	timeout := cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Log{
		localPath: cfg.LocalPath,
		remoteURL: cfg.RemoteURL,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Append writes the entry locally, then mirrors it remotely best-effort.
// The returned error concerns only the local write.
func (l *Log) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	l.mu.Lock()
	err = l.appendLocal(line)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	// The mirror must not block or fail the local write, which already
	// succeeded.
	if l.remoteURL != "" {
		if mirrorErr := l.mirror(ctx, line); mirrorErr != nil {
			logger.Warnf("History: remote mirror failed (local copy is authoritative): %v", mirrorErr)
		}
	}
	return nil
}

func (l *Log) appendLocal(line []byte) error {
	f, err := os.OpenFile(l.localPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (l *Log) mirror(ctx context.Context, line []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.remoteURL, bytes.NewReader(line))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mirror returned %s", resp.Status)
	}
	return nil
}

// Read returns all entries from the local log, oldest first. A missing
// file yields an empty history.
func (l *Log) Read() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.localPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			// A corrupt line shouldn't make the whole history unreadable.
			logger.Warnf("History: skipping malformed entry: %v", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("scan history log: %w", err)
	}
	return entries, nil
}

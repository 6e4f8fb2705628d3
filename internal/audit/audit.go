package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Operation names.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Entry represents a single audit log entry. Secrets are never recorded.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Operation string `json:"op"`
	ProfileID string `json:"profile_id,omitempty"`
	Profile   string `json:"profile"`
	Account   string `json:"account,omitempty"`

	// Optional fields depending on operation.
	AccountCreated bool   `json:"account_created,omitempty"` // For create.
	RenamedFrom    string `json:"renamed_from,omitempty"`    // For update.
	Deprovisioned  bool   `json:"deprovisioned,omitempty"`   // For delete.
}

// Trail appends entries to a JSON Lines file. A nil *Trail or one with an
// empty path records nothing.
type Trail struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func New(path string) *Trail {
	return &Trail{path: path, now: time.Now}
}

// Path returns the log file path, empty when disabled.
func (t *Trail) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Log appends an entry to the audit log.
// Failures are swallowed: operations should not fail just because audit
// logging failed.
func (t *Trail) Log(entry Entry) {
	_ = t.Append(entry)
}

// Append is Log with the error reported.
func (t *Trail) Append(entry Entry) error {
	if t == nil || t.path == "" {
		return nil
	}
	if entry.Timestamp == "" {
		entry.Timestamp = t.now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func (t *Trail) ReadEntries() ([]Entry, error) {
	if t.Path() == "" {
		return nil, nil
	}

	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return parseEntries(data), nil
}

// parseEntries parses JSON Lines data into audit entries.
// Malformed lines, such as a torn final write, are skipped.
func parseEntries(data []byte) []Entry {
	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i < len(data) && data[i] != '\n' {
			continue
		}
		line := data[start:i]
		start = i + 1
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

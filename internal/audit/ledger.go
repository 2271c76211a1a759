// Package audit keeps an append-only, hash-chained JSON Lines ledger.
//
// Each record carries data_hash = sha256({"action":..,"payload":..}) and
// chain_hash = sha256(prev_hash + data_hash), with a zero genesis hash. A
// change to any record breaks the chain from that record on.
package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GenesisHash is the prev_hash of the first record.
var GenesisHash = strings.Repeat("0", 64)

// MaxRecordBytes bounds one encoded ledger line. Append refuses anything
// larger so that every stored record can be scanned back.
const MaxRecordBytes = 4 << 20

// ErrRecordTooLarge is returned by Append for records over MaxRecordBytes.
var ErrRecordTooLarge = errors.New("audit: record exceeds size limit")

// Record is one ledger line.
type Record struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Action    string          `json:"action"`
	DataHash  string          `json:"data_hash"`
	PrevHash  string          `json:"prev_hash"`
	ChainHash string          `json:"chain_hash"`
	Payload   json.RawMessage `json:"payload"`
}

// Report is the result of Verify.
type Report struct {
	Valid   bool `json:"valid"`
	Records int  `json:"records"`
	// Line is the 1-based line of the first bad record.
	Line   int    `json:"line,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Ledger appends to a single file. Appends from one process are serialized.
type Ledger struct {
	path string
	log  zerolog.Logger
	now  func() time.Time

	mu   sync.Mutex
	head string
}

func New(path string, log zerolog.Logger) *Ledger {
	return &Ledger{path: path, log: log, now: time.Now}
}

func (l *Ledger) Path() string { return l.path }

// Append writes a record for action with payload and returns it.
func (l *Ledger) Append(action string, payload any) (Record, error) {
	if strings.TrimSpace(action) == "" {
		return Record{}, errors.New("audit: empty action")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("audit: encode payload: %w", err)
	}
	if len(raw) >= MaxRecordBytes {
		return Record{}, ErrRecordTooLarge
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.head == "" {
		head, err := l.lastChainHash()
		if err != nil {
			return Record{}, err
		}
		l.head = head
	}
	data, err := dataHash(action, raw)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Action:    action,
		DataHash:  data,
		PrevHash:  l.head,
		ChainHash: chainHash(l.head, data),
		Payload:   raw,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	if len(line) >= MaxRecordBytes {
		return Record{}, ErrRecordTooLarge
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return Record{}, fmt.Errorf("audit: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return Record{}, fmt.Errorf("audit: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return Record{}, fmt.Errorf("audit: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return Record{}, fmt.Errorf("audit: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return Record{}, fmt.Errorf("audit: %w", err)
	}
	l.head = rec.ChainHash
	l.log.Debug().Str("action", action).Str("id", rec.ID).Str("chain_hash", rec.ChainHash).Msg("audit record appended")
	return rec, nil
}

// lastChainHash reads the chain head from disk. A missing or empty ledger
// starts from GenesisHash; an unreadable last line is an error so that a
// damaged ledger is not silently re-rooted.
func (l *Ledger) lastChainHash() (string, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return GenesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("audit: %w", err)
	}
	defer f.Close()
	var last []byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), MaxRecordBytes)
	for sc.Scan() {
		if b := bytes.TrimSpace(sc.Bytes()); len(b) > 0 {
			last = append(last[:0], b...)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("audit: read: %w", err)
	}
	if last == nil {
		return GenesisHash, nil
	}
	var rec Record
	if err := json.Unmarshal(last, &rec); err != nil || rec.ChainHash == "" {
		return "", errors.New("audit: last ledger record is unreadable")
	}
	return rec.ChainHash, nil
}

// Verify walks the ledger and recomputes every hash. A missing or empty
// ledger is valid. The error is non-nil only when the file cannot be read.
func (l *Ledger) Verify() (Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return VerifyFile(l.path)
}

// VerifyFile is Verify for a ledger not opened through New.
func VerifyFile(path string) (Report, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Report{Valid: true}, nil
	}
	if err != nil {
		return Report{}, err
	}
	defer f.Close()

	prev := GenesisHash
	rep := Report{Valid: true}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), MaxRecordBytes)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		if reason := checkRecord(b, prev, &prev); reason != "" {
			return Report{Valid: false, Records: rep.Records, Line: line, Reason: reason}, nil
		}
		rep.Records++
	}
	if err := sc.Err(); err != nil {
		return Report{}, err
	}
	return rep, nil
}

func checkRecord(b []byte, prev string, next *string) string {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return "invalid record"
	}
	if rec.ChainHash == "" || rec.DataHash == "" {
		return "invalid record"
	}
	if rec.PrevHash != prev {
		return "prev_hash does not match previous record"
	}
	data, err := dataHash(rec.Action, rec.Payload)
	if err != nil || data != rec.DataHash {
		return "data_hash does not match payload"
	}
	if chainHash(prev, rec.DataHash) != rec.ChainHash {
		return "chain_hash mismatch"
	}
	*next = rec.ChainHash
	return ""
}

// dataHash hashes the compact form of {"action":..,"payload":..}.
func dataHash(action string, payload json.RawMessage) (string, error) {
	var compact bytes.Buffer
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	if err := json.Compact(&compact, payload); err != nil {
		return "", fmt.Errorf("audit: payload: %w", err)
	}
	act, _ := json.Marshal(action)
	var buf bytes.Buffer
	buf.WriteString(`{"action":`)
	buf.Write(act)
	buf.WriteString(`,"payload":`)
	buf.Write(compact.Bytes())
	buf.WriteString("}")
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func chainHash(prev, data string) string {
	sum := sha256.Sum256([]byte(prev + data))
	return hex.EncodeToString(sum[:])
}

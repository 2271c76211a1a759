package activestate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"privgate/internal/common/fsutil"
)

// FileStore keeps the active path as a KEY=VALUE line in a small text file
// that may hold other keys. Writers in this process are serialized; writers
// in other processes are last-writer-wins.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// Path returns the record file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(context.Context) (string, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var val string
	var found bool
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if v, ok := valueOf(sc.Text()); ok {
			// Last assignment wins, as in a shell env file.
			val, found = v, true
		}
	}
	if err := sc.Err(); err != nil {
		return "", false, err
	}
	if !found || val == "" {
		return "", false, nil
	}
	return val, true, nil
}

func (s *FileStore) Set(_ context.Context, path string) error {
	if strings.ContainsAny(path, "\r\n") {
		return errors.New("active model path must be a single line")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return fsutil.WriteFileAtomic(s.path, rewrite(b, path), 0o600)
}

// rewrite replaces the first Key line with the new value, drops any later
// duplicates and keeps every other line. Key is appended when absent.
func rewrite(old []byte, path string) []byte {
	line := Key + "=" + path
	var out bytes.Buffer
	written := false
	if len(old) > 0 {
		for _, l := range strings.Split(strings.TrimRight(string(old), "\n"), "\n") {
			if _, ok := valueOf(l); ok {
				if !written {
					out.WriteString(line + "\n")
					written = true
				}
				continue
			}
			out.WriteString(strings.TrimRight(l, "\r") + "\n")
		}
	}
	if !written {
		out.WriteString(line + "\n")
	}
	return out.Bytes()
}

func valueOf(line string) (string, bool) {
	l := strings.TrimSpace(line)
	l = strings.TrimPrefix(l, "export ")
	k, v, ok := strings.Cut(l, "=")
	if !ok || strings.TrimSpace(k) != Key {
		return "", false
	}
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '\'' && v[len(v)-1] == '\'') {
		v = v[1 : len(v)-1]
	}
	return v, true
}

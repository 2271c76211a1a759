package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"privgate/internal/common/fsutil"
)

// LocalFile is a model file found on disk.
type LocalFile struct {
	Name string
	Path string
	Size int64
}

// ScanDir lists *.gguf files in dir (case-insensitive), sorted by name.
// Temp files left by interrupted fetches are skipped.
func ScanDir(dir string) ([]LocalFile, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []LocalFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, LocalFile{Name: name, Path: filepath.Join(abs, name), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

package integrity

import (
	"context"
	"sync"

	"privgate/internal/registry"
)

// Source resolves the expected digest and origin of an artifact. Resolve
// returns a *registry.TrustError for unlisted or untrusted keys.
type Source interface {
	Name() string
	Resolve(ctx context.Context, key string) (registry.Entry, error)
	// Catalog returns every listed entry, trusted or not, plus an identifier
	// of the catalog version (a CID for signed registries).
	Catalog(ctx context.Context) ([]registry.Entry, string, error)
}

// DefaultInlineEntries is the built-in table of known artifacts.
func DefaultInlineEntries() []registry.Entry {
	return []registry.Entry{
		{
			ID:          "mistral-7b-instruct-q4_k_m",
			DisplayName: "Mistral-7B-Instruct-Q4_K_M",
			SourceURI:   "https://huggingface.co/TheBloke/Mistral-7B-Instruct-v0.2-GGUF/resolve/main/mistral-7b-instruct-v0.2.Q4_K_M.gguf",
			Digest:      "c9b84e2cb9d5e547faefab7b9b2a8cc73e2e9ab31dd23842fbbfc97b5670a708",
			Trusted:     true,
			Filename:    "mistral-7b-instruct.Q4_K_M.gguf",
		},
		{
			ID:          "phi-3-mini-instruct-q4_k_m",
			DisplayName: "Phi-3-Mini-Instruct-Q4_K_M",
			SourceURI:   "https://huggingface.co/TheBloke/phi-3-mini-4k-instruct-GGUF/resolve/main/phi-3-mini-4k-instruct.Q4_K_M.gguf",
			Digest:      "a21ad4c26f53211e39df6b374f640093226f55da16d3f7a7c10c3a90ab5c04b2",
			Trusted:     true,
			Filename:    "phi-3-mini-4k-instruct.Q4_K_M.gguf",
		},
	}
}

// InlineTable is a Source backed by a fixed, compiled-in table.
type InlineTable struct {
	reg *registry.Registry
}

func NewInlineTable(entries []registry.Entry) *InlineTable {
	return &InlineTable{reg: &registry.Registry{Entries: entries}}
}

func (t *InlineTable) Name() string { return "inline" }

func (t *InlineTable) Resolve(_ context.Context, key string) (registry.Entry, error) {
	return t.reg.Find(key)
}

func (t *InlineTable) Catalog(context.Context) ([]registry.Entry, string, error) {
	out := make([]registry.Entry, len(t.reg.Entries))
	copy(out, t.reg.Entries)
	return out, "inline", nil
}

// RegistrySource re-reads and re-verifies the signed registry in Dir on
// every call, so a registry replaced on disk takes effect on the next
// verification and a tampered one is refused.
type RegistrySource struct {
	Dir     string
	Options registry.Options

	mu   sync.Mutex
	last string
}

func NewRegistrySource(dir string, opts registry.Options) *RegistrySource {
	return &RegistrySource{Dir: dir, Options: opts}
}

func (s *RegistrySource) Name() string { return "registry" }

func (s *RegistrySource) Resolve(_ context.Context, key string) (registry.Entry, error) {
	reg, err := s.load()
	if err != nil {
		return registry.Entry{}, err
	}
	return reg.Find(key)
}

func (s *RegistrySource) Catalog(context.Context) ([]registry.Entry, string, error) {
	reg, err := s.load()
	if err != nil {
		return nil, "", err
	}
	return reg.Entries, reg.CID, nil
}

// LastCID returns the CID of the most recently verified registry.
func (s *RegistrySource) LastCID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *RegistrySource) load() (*registry.Registry, error) {
	reg, err := registry.Open(s.Dir, s.Options)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = reg.CID
	s.mu.Unlock()
	return reg, nil
}

package registry

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// Entry is one model in the signed trust registry.
type Entry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SourceURI   string `json:"source_uri"`
	Digest      string `json:"sha256"`
	Trusted     bool   `json:"trusted"`
	// Filename is the on-disk name under the models directory. Defaults to
	// the last segment of SourceURI, then "<id>.gguf".
	Filename string `json:"filename,omitempty"`
}

// UnmarshalJSON accepts the aliases used by older registries
// (name, url, expected_digest, file) alongside the canonical keys.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Name        string `json:"name"`
		SourceURI   string `json:"source_uri"`
		URL         string `json:"url"`
		SHA256      string `json:"sha256"`
		Digest      string `json:"expected_digest"`
		Trusted     *bool  `json:"trusted"`
		Filename    string `json:"filename"`
		File        string `json:"file"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*e = Entry{
		ID:          aux.ID,
		DisplayName: firstNonEmpty(aux.DisplayName, aux.Name),
		SourceURI:   firstNonEmpty(aux.SourceURI, aux.URL),
		Digest:      strings.ToLower(strings.TrimSpace(firstNonEmpty(aux.SHA256, aux.Digest))),
		Filename:    firstNonEmpty(aux.Filename, aux.File),
	}
	if aux.Trusted != nil {
		e.Trusted = *aux.Trusted
	}
	return nil
}

// File returns the on-disk filename for the entry.
func (e Entry) File() string {
	if e.Filename != "" {
		return e.Filename
	}
	if u, err := url.Parse(e.SourceURI); err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "/" && base != "." && strings.HasSuffix(strings.ToLower(base), ".gguf") {
			return base
		}
	}
	return path.Base(e.ID) + ".gguf"
}

// plainFilename reports whether name is a single path segment that stays
// inside the directory it is joined to.
func plainFilename(name string) bool {
	switch {
	case name == "", name == ".", name == "..":
		return false
	case strings.ContainsAny(name, "/\\\x00"):
		return false
	case len(name) >= 2 && name[1] == ':':
		return false
	}
	return true
}

// Registry is a parsed, signature-verified trust registry. It is immutable
// once returned by LoadAndVerify.
type Registry struct {
	FormatVersion int
	IssuedAt      time.Time
	Updated       time.Time
	Entries       []Entry
	// CID is a CIDv1 (raw, sha2-256) of the exact registry bytes that were verified.
	CID string
	// Algorithm names the signature scheme that verified the registry.
	Algorithm string
	// SignedAt is the modification time of the signature file.
	SignedAt time.Time
}

type document struct {
	FormatVersion int       `json:"format_version"`
	IssuedAt      time.Time `json:"issued_at"`
	Updated       time.Time `json:"updated"`
	Entries       []Entry   `json:"entries"`
	Models        []Entry   `json:"models"`
}

// parse decodes registry bytes and rejects structurally invalid content.
func parse(b []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		// A bare array of entries is accepted too.
		var list []Entry
		if err2 := json.Unmarshal(b, &list); err2 != nil {
			return doc, newError(KindMalformed, "registry is not valid JSON", err)
		}
		doc = document{Entries: list}
	}
	entries := make([]Entry, 0, len(doc.Entries)+len(doc.Models))
	entries = append(entries, doc.Entries...)
	entries = append(entries, doc.Models...)
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return doc, newError(KindMalformed, fmt.Sprintf("entry %d has empty id", i), nil)
		}
		if _, dup := seen[e.ID]; dup {
			return doc, newError(KindMalformed, fmt.Sprintf("duplicate id %q", e.ID), nil)
		}
		seen[e.ID] = struct{}{}
		if !isHexDigest(e.Digest) {
			return doc, newError(KindMalformed, fmt.Sprintf("entry %q has invalid sha256 digest", e.ID), nil)
		}
		if !plainFilename(e.File()) {
			return doc, newError(KindMalformed, fmt.Sprintf("entry %q has invalid filename", e.ID), nil)
		}
	}
	doc.Entries, doc.Models = entries, nil
	return doc, nil
}

// Find looks a model up by id, by filename, or by a vendor-prefixed path
// whose last segment is the id or filename. A bare name also matches a
// vendor-prefixed id ("phi" finds "vendor/phi"). Exact id matches win.
// A listed entry with trusted=false is returned together with
// ErrMarkedUntrusted so callers can still report its name.
func (r *Registry) Find(key string) (Entry, error) {
	key = strings.TrimSpace(key)
	if r == nil || key == "" {
		return Entry{}, notListed(key)
	}
	for _, e := range r.Entries {
		if e.ID == key {
			return checkTrusted(e)
		}
	}
	base := key
	if i := strings.LastIndexAny(key, `/\`); i >= 0 {
		base = key[i+1:]
	}
	for _, e := range r.Entries {
		if base == e.ID || key == e.File() || base == e.File() || strings.HasSuffix(e.ID, "/"+key) {
			return checkTrusted(e)
		}
	}
	return Entry{}, notListed(key)
}

// Trusted returns the entries marked trusted, in registry order.
func (r *Registry) Trusted() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if e.Trusted {
			out = append(out, e)
		}
	}
	return out
}

func checkTrusted(e Entry) (Entry, error) {
	if !e.Trusted {
		return e, newError(KindMarkedUntrusted, fmt.Sprintf("model %q is marked untrusted", e.ID), nil)
	}
	return e, nil
}

func notListed(key string) error {
	return newError(KindNotListed, fmt.Sprintf("model %q not listed in trust registry", key), nil)
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

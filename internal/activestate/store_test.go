package activestate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFileStore_GetMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "active.env"))
	if _, ok, err := s.Get(context.Background()); ok || err != nil {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(s.Path(), []byte("LOCAL_MODEL_PATH=\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.Get(context.Background()); ok || err != nil {
		t.Fatalf("empty value: ok=%v err=%v", ok, err)
	}
}

func TestFileStore_SetPreservesOtherKeys(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	orig := "OPENAI_API_KEY=sk-x\nLOCAL_MODEL_PATH=/old.gguf\nGPT_MODEL=gpt-4o\nLOCAL_MODEL_PATH=/dup.gguf\n"
	if err := os.WriteFile(p, []byte(orig), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(p)
	if err := s.Set(context.Background(), "/models/new.gguf"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	b, _ := os.ReadFile(p)
	want := "OPENAI_API_KEY=sk-x\nLOCAL_MODEL_PATH=/models/new.gguf\nGPT_MODEL=gpt-4o\n"
	if string(b) != want {
		t.Fatalf("record:\n%s\nwant:\n%s", b, want)
	}
	got, ok, err := s.Get(context.Background())
	if err != nil || !ok || got != "/models/new.gguf" {
		t.Fatalf("Get = %q %v %v", got, ok, err)
	}
}

func TestFileStore_SetAppendsAndCreates(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "active.env")
	s := NewFileStore(p)
	if err := s.Set(context.Background(), "/a.gguf"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("OTHER=1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), "/b.gguf"); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "OTHER=1\nLOCAL_MODEL_PATH=/b.gguf\n" {
		t.Fatalf("unexpected record %q", b)
	}
}

func TestFileStore_QuotedAndExport(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(p, []byte(`export LOCAL_MODEL_PATH="/q.gguf"`+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := NewFileStore(p).Get(context.Background())
	if !ok || got != "/q.gguf" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestFileStore_RejectsMultiline(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), ".env"))
	if err := s.Set(context.Background(), "/a\nEVIL=1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFileStore_ConcurrentSetsStayWellFormed(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".env")
	s := NewFileStore(p)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(context.Background(), fmt.Sprintf("/m%d.gguf", i))
		}(i)
	}
	wg.Wait()
	b, _ := os.ReadFile(p)
	if n := strings.Count(string(b), Key+"="); n != 1 {
		t.Fatalf("expected exactly one record line, got %d in %q", n, b)
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "")
	ctx := context.Background()

	if _, ok, err := s.Get(ctx); ok || err != nil {
		t.Fatalf("unset: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "/models/a.gguf"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx)
	if err != nil || !ok || got != "/models/a.gguf" {
		t.Fatalf("Get = %q %v %v", got, ok, err)
	}
	if v, _ := mr.Get("privgate:active:LOCAL_MODEL_PATH"); v != "/models/a.gguf" {
		t.Fatalf("raw key = %q", v)
	}
}

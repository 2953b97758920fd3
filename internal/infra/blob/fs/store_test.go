package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/blob/core"
)

func TestFilesystemStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "blobs")
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Driver() != core.DriverFilesystem || s.Root() != root {
		t.Fatalf("unexpected store %+v", s)
	}
	info, err := s.Put(ctx, "templates/t1/a.json", strings.NewReader("hello"), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "templates/t1/a.json" || info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "templates", "t1", "a.json.meta")); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
	if _, err := s.Put(ctx, "templates/t1/a.json", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := s.Get(ctx, "templates/t1/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "hello" || got.Metadata["k"] != "v" || got.ETag != info.ETag {
		t.Fatalf("unexpected get %q %+v", body, got)
	}
	if _, err := s.Put(ctx, "other/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := s.List(ctx, "templates/")
	if err != nil || len(list) != 1 || list[0].Key != "templates/t1/a.json" {
		t.Fatalf("unexpected list %+v (%v)", list, err)
	}
	if ok, err := s.Delete(ctx, "templates/t1/a.json"); !ok || err != nil {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "templates/t1/a.json"); ok {
		t.Fatalf("expected missing on second delete")
	}
	if _, _, err := s.Get(ctx, "templates/t1/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFilesystemStoreRejectsUnsafeKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "/etc/passwd", "../escape", "a/../../b", "x.meta"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q rejected", key)
		}
	}
}

func TestFilesystemStoreCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	s, _ := New(root)
	ctx := context.Background()
	if _, err := s.Put(ctx, "a.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.json.meta"), []byte("{"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, _, err := s.Get(ctx, "a.json"); err == nil || !strings.Contains(err.Error(), "decode blob metadata") {
		t.Fatalf("expected metadata decode error, got %v", err)
	}
	if _, err := s.List(ctx, ""); err == nil {
		t.Fatalf("expected list to surface corrupt sidecar")
	}
}

func TestNewDefaultsRoot(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	s, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Root() != defaultRoot {
		t.Fatalf("expected default root, got %s", s.Root())
	}
}

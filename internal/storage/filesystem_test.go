package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestFileStoreWriteReadRoundtrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key, err := store.Write(ctx, "outputs/job-1/reels/01/narration.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "outputs/job-1/reels/01/narration.mp3" {
		t.Fatalf("unexpected key: %q", key)
	}

	data, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "audio" {
		t.Fatalf("unexpected data: %q", data)
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	for _, key := range []string{"", ".", "..", "../secret", "a/../../secret"} {
		if _, err := store.Write(ctx, key, []byte("x")); err == nil {
			t.Errorf("Write(%q) accepted an escaping key", key)
		}
		if _, err := store.Read(ctx, key); err == nil {
			t.Errorf("Read(%q) accepted an escaping key", key)
		}
		if _, err := store.AbsPath(key); err == nil {
			t.Errorf("AbsPath(%q) accepted an escaping key", key)
		}
	}
}

func TestFileStoreKeysAreCleaned(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key, err := store.Write(ctx, "./outputs//job-1/file.txt", []byte("x"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "outputs/job-1/file.txt" {
		t.Fatalf("unexpected cleaned key: %q", key)
	}
}

func TestFileStoreListRelativeToPrefix(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	for _, key := range []string{
		"outputs/job-1/reels/01/narration.mp3",
		"outputs/job-1/reels/01/reel.mp4",
		"outputs/job-2/reels/01/reel.mp4",
	} {
		if _, err := store.Write(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Write(%q): %v", key, err)
		}
	}

	keys, err := store.List(ctx, "outputs/job-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := map[string]bool{
		"reels/01/narration.mp3": true,
		"reels/01/reel.mp4":      true,
	}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want 2 entries", keys)
	}
	for _, k := range keys {
		if !want[k] {
			t.Fatalf("unexpected key %q in %v", k, keys)
		}
	}
}

func TestFileStoreListMissingPrefixIsEmpty(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	keys, err := store.List(context.Background(), "outputs/nope")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("keys = %v, want empty", keys)
	}
}

func TestFileStoreAbsPathStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	p, err := store.AbsPath("outputs/job-1/reel.mp4")
	if err != nil {
		t.Fatalf("AbsPath: %v", err)
	}
	want := filepath.Join(root, "outputs", "job-1", "reel.mp4")
	if p != want {
		t.Fatalf("AbsPath = %q, want %q", p, want)
	}
}

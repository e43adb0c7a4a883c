// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/duckchat/internal/duck"
	"github.com/jeranaias/duckchat/internal/model"
)

func sampleState() *duck.ConversationState {
	state := duck.NewConversationState(model.GPT4oMini)
	state.Append(duck.NewUserMessage("what is the capital of France?"))
	state.Append(duck.NewAssistantMessage("Paris."))
	state.ContinuationToken = "token-abc"
	return state
}

func TestValidateName(t *testing.T) {
	valid := []string{"validname123", "sess_4a2b", "work-notes"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "../escape", "a/b", "a.b", "trailing."}
	for _, name := range invalid {
		err := ValidateName(name)
		var nameErr *InvalidSessionNameError
		if !errors.As(err, &nameErr) {
			t.Errorf("ValidateName(%q) = %v, want *InvalidSessionNameError", name, err)
		}
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	store := NewStore(t.TempDir())
	want := sampleState()

	if err := store.Save("mysession", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load("mysession")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Model != want.Model {
		t.Errorf("model = %s, want %s", got.Model, want.Model)
	}
	if got.ContinuationToken != want.ContinuationToken {
		t.Errorf("token = %q, want %q", got.ContinuationToken, want.ContinuationToken)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "Paris." {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestSave_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Save("private", sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "private.json"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestSave_InvalidNameBeforeIO(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "sessions"))

	err := store.Save("../escape", sampleState())
	var nameErr *InvalidSessionNameError
	if !errors.As(err, &nameErr) {
		t.Fatalf("error = %v, want *InvalidSessionNameError", err)
	}

	// The store directory must not have been created.
	if _, statErr := os.Stat(filepath.Join(dir, "sessions")); !os.IsNotExist(statErr) {
		t.Error("invalid save touched the filesystem")
	}
}

func TestLoad_NotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("nothere")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := store.Load("broken")
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("error = %v, want *StorageError", err)
	}
}

func TestLoadLatest(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	for _, name := range []string{"older", "newest", "middle"} {
		if err := store.Save(name, sampleState()); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}
	}

	base := time.Now().Add(-time.Hour)
	for name, offset := range map[string]time.Duration{
		"older":  0,
		"middle": time.Minute,
		"newest": 2 * time.Minute,
	} {
		path := filepath.Join(dir, name+".json")
		if err := os.Chtimes(path, base.Add(offset), base.Add(offset)); err != nil {
			t.Fatalf("Chtimes failed: %v", err)
		}
	}

	_, name, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if name != "newest" {
		t.Errorf("latest = %q, want newest", name)
	}
}

func TestLoadLatest_MissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))

	_, _, err := store.LoadLatest()
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestLoadLatest_EmptyDir(t *testing.T) {
	store := NewStore(t.TempDir())

	_, _, err := store.LoadLatest()
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestLoadLatest_IgnoresNonSessionFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Save("real", sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "notes.txt"), future, future); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	_, name, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if name != "real" {
		t.Errorf("latest = %q, want real", name)
	}
}

func TestLoadLatest_SkipsUnloadableStems(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Save("real", sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// An externally placed file whose stem is not a valid session name
	// must not break recency selection, even when it is newest.
	if err := os.WriteFile(filepath.Join(dir, "a.b.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "a.b.json"), future, future); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	_, name, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if name != "real" {
		t.Errorf("latest = %q, want real", name)
	}
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Save("clean", sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	first := sampleState()
	if err := store.Save("first", first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second := duck.NewConversationState(model.Claude3)
	second.Append(duck.NewUserMessage("hello there"))
	if err := store.Save("second", second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	os.Chtimes(filepath.Join(dir, "first.json"), base, base)
	os.Chtimes(filepath.Join(dir, "second.json"), base.Add(time.Minute), base.Add(time.Minute))

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d sessions, want 2", len(metas))
	}
	if metas[0].Name != "second" || metas[1].Name != "first" {
		t.Errorf("order = [%s %s], want [second first]", metas[0].Name, metas[1].Name)
	}
	if metas[1].MessageCount != 2 {
		t.Errorf("message count = %d, want 2", metas[1].MessageCount)
	}
	if metas[0].Preview != "hello there" {
		t.Errorf("preview = %q, want 'hello there'", metas[0].Preview)
	}
}

func TestList_EmptyDirIsNotAnError(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"))

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("got %d sessions, want 0", len(metas))
	}
}

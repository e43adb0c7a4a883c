// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation sessions as one JSON file per
// session. Writes are atomic, so an interrupted save never corrupts a
// previously stored session.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/duckchat/internal/duck"
	"github.com/jeranaias/duckchat/internal/util"
)

const sessionExt = ".json"

// ErrSessionNotFound is returned when no stored session matches a request.
var ErrSessionNotFound = errors.New("session not found")

// InvalidSessionNameError rejects a session name before any filesystem
// access. Names are used as file stems, so path syntax is forbidden.
type InvalidSessionNameError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidSessionNameError) Error() string {
	return fmt.Sprintf("invalid session name %q: %s", e.Name, e.Reason)
}

// StorageError wraps a filesystem or serialization failure.
type StorageError struct {
	Op   string
	Name string
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("storage %s failed for session %q: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidateName checks that a session name is safe to use as a file stem.
// It runs before any I/O.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &InvalidSessionNameError{Name: name, Reason: "must not be empty"}
	case strings.Contains(name, "/"):
		return &InvalidSessionNameError{Name: name, Reason: "must not contain '/'"}
	case strings.ContainsRune(name, os.PathSeparator):
		return &InvalidSessionNameError{Name: name, Reason: "must not contain a path separator"}
	case strings.Contains(name, "."):
		return &InvalidSessionNameError{Name: name, Reason: "must not contain '.'"}
	}
	return nil
}

// Meta summarizes a stored session for listings.
type Meta struct {
	Name         string
	ModTime      time.Time
	MessageCount int
	Preview      string
}

// Store reads and writes sessions under a base directory.
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir. The directory is created
// lazily on first save.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BaseDir returns the directory sessions are stored in.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.baseDir, name+sessionExt)
}

// Save validates the name and atomically writes the session to disk.
// Session files are private to the user.
func (s *Store) Save(name string, state *duck.ConversationState) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Name: name, Err: err}
	}

	if err := util.AtomicWriteFile(s.path(name), data, 0o600); err != nil {
		return &StorageError{Op: "write", Name: name, Err: err}
	}
	return nil
}

// Load reads the named session. It returns ErrSessionNotFound (wrapped) when
// no such session exists.
func (s *Store) Load(name string) (*duck.ConversationState, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
		}
		return nil, &StorageError{Op: "read", Name: name, Err: err}
	}

	var state duck.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &StorageError{Op: "decode", Name: name, Err: err}
	}
	return &state, nil
}

// LoadLatest returns the most recently modified session and its name. Ties
// on modification time keep the first session encountered; only a strictly
// newer file replaces the current candidate. It returns ErrSessionNotFound
// when the directory is missing or holds no sessions.
func (s *Store) LoadLatest() (*duck.ConversationState, string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrSessionNotFound
		}
		return nil, "", &StorageError{Op: "list", Err: err}
	}

	var (
		latestName string
		latestTime time.Time
		found      bool
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sessionExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), sessionExt)
		// Externally placed files whose stem is not a loadable session
		// name are skipped, same as non-session files.
		if ValidateName(name) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(latestTime) {
			latestName = name
			latestTime = info.ModTime()
			found = true
		}
	}
	if !found {
		return nil, "", ErrSessionNotFound
	}

	state, err := s.Load(latestName)
	if err != nil {
		return nil, "", err
	}
	return state, latestName, nil
}

// List returns metadata for every stored session, most recent first.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "list", Err: err}
	}

	var metas []Meta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sessionExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), sessionExt)

		info, err := entry.Info()
		if err != nil {
			continue
		}
		state, err := s.Load(name)
		if err != nil {
			// Skip undecodable files rather than fail the listing.
			continue
		}

		metas = append(metas, Meta{
			Name:         name,
			ModTime:      info.ModTime(),
			MessageCount: len(state.Messages),
			Preview:      previewOf(state),
		})
	}

	// Most recent first; equal timestamps keep directory order.
	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].ModTime.After(metas[j].ModTime)
	})
	return metas, nil
}

// previewOf returns the start of the first user message.
func previewOf(state *duck.ConversationState) string {
	const maxPreview = 60
	for _, msg := range state.Messages {
		if msg.Role != duck.RoleUser {
			continue
		}
		text := strings.ReplaceAll(msg.Content, "\n", " ")
		if len(text) > maxPreview {
			return text[:maxPreview] + "..."
		}
		return text
	}
	return ""
}

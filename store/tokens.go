// ABOUTME: File-backed OAuth token storage keyed by user id
// ABOUTME: Whole-file JSON read-modify-write, missing or corrupt file reads as empty
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/oauth2"
)

// TokenStore persists per-user OAuth token bundles to a single JSON
// document, keyed by stringified user id. Every Set rewrites the whole
// file; the finally-written file reflects the last writer's snapshot.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Get returns the stored token bundle for the user, if any.
func (s *TokenStore) Get(userID int64) (*oauth2.Token, bool) {
	tokens := s.load()
	tok, ok := tokens[strconv.FormatInt(userID, 10)]
	return tok, ok
}

// Set overwrites the user's token record. Re-running the OAuth exchange
// for the same user replaces the record rather than merging it.
func (s *TokenStore) Set(userID int64, token *oauth2.Token) error {
	tokens := s.load()
	tokens[strconv.FormatInt(userID, 10)] = token
	return s.save(tokens)
}

// load reads the full mapping into memory. A missing or unreadable file
// is an empty mapping, not an error.
func (s *TokenStore) load() map[string]*oauth2.Token {
	tokens := make(map[string]*oauth2.Token)

	f, err := os.Open(s.path)
	if err != nil {
		return tokens
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(&tokens); err != nil {
		return make(map[string]*oauth2.Token)
	}
	return tokens
}

func (s *TokenStore) save(tokens map[string]*oauth2.Token) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(tokens); err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}
	return nil
}

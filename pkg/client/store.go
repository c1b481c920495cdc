package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenStore persists the token pair between process runs.
// Load returns nil, nil when nothing is stored.
type TokenStore interface {
	Load() (*Tokens, error)
	Save(tokens *Tokens) error
	Clear() error
}

type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens *Tokens
}

func (s *MemoryTokenStore) Load() (*Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return nil, nil
	}
	cp := *s.tokens
	return &cp, nil
}

func (s *MemoryTokenStore) Save(tokens *Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tokens
	s.tokens = &cp
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	s.tokens = nil
	s.mu.Unlock()
	return nil
}

// FileTokenStore keeps the tokens as JSON in a file readable only by the owner.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Load() (*Tokens, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tokens Tokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("decoding token file: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, nil
	}
	return &tokens, nil
}

func (s FileTokenStore) Save(tokens *Tokens) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	raw, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, raw, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

func (s FileTokenStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

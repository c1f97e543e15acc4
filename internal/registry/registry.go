// Package registry keeps each user's enrolled ceremony tokens in memory.
//
// Tokens are an ordered, duplicate-preserving sequence per user; the index
// into that sequence is the addressing scheme for remove and info actions.
// Indices are only meaningful against the current sequence — a removal
// shifts everything behind it. State is process-local and lost on restart.
package registry

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrNoValidTokens is returned when a bulk add contains nothing but
	// whitespace.
	ErrNoValidTokens = errors.New("no valid tokens")

	// ErrInvalidSelection is returned for an out-of-range token index.
	ErrInvalidSelection = errors.New("invalid token selection")
)

// Store is the per-user token registry. A single mutex guards all users;
// every read hands out an independent copy so a monitoring session always
// starts from a consistent snapshot while commands keep mutating.
type Store struct {
	mu     sync.Mutex
	tokens map[int64][]string
}

// New creates an empty registry.
func New() *Store {
	return &Store{tokens: make(map[int64][]string)}
}

// Add appends the non-empty, whitespace-trimmed entries of lines to the
// user's sequence, preserving submission order. Duplicates are kept as
// separate entries. Returns how many entries were added and the new total,
// or ErrNoValidTokens when nothing survives trimming.
func (s *Store) Add(userID int64, lines []string) (added, total int, err error) {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if t := strings.TrimSpace(line); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return 0, 0, ErrNoValidTokens
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = append(s.tokens[userID], cleaned...)
	return len(cleaned), len(s.tokens[userID]), nil
}

// Remove deletes the entry at index and returns it. An out-of-range index
// returns ErrInvalidSelection without touching the sequence.
func (s *Store) Remove(userID int64, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.tokens[userID]
	if index < 0 || index >= len(tokens) {
		return "", ErrInvalidSelection
	}
	removed := tokens[index]
	s.tokens[userID] = append(tokens[:index], tokens[index+1:]...)
	return removed, nil
}

// Get returns the entry at index with the same range contract as Remove.
func (s *Store) Get(userID int64, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.tokens[userID]
	if index < 0 || index >= len(tokens) {
		return "", ErrInvalidSelection
	}
	return tokens[index], nil
}

// List returns a copy of the user's current sequence. Empty for users that
// never added tokens.
func (s *Store) List(userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.tokens[userID]
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}

// Count returns how many tokens the user currently has.
func (s *Store) Count(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens[userID])
}

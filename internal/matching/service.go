package matching

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyMapping = errors.New("mapping pattern and note must not be empty")

type Repository interface {
	FindMatch(ctx context.Context, rawDescription string) (string, error)
	CreateMapping(ctx context.Context, rawPattern, preferredNote string) error
}

// Service resolves the noisy descriptions on imported statement rows
// ("EFT THANDI N  X7Q2") into the note a shop owner prefers to see on the
// transaction. Patterns learned once apply to every later import.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// normalize collapses runs of whitespace so a statement's padded column
// text matches patterns learned from differently padded rows.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Suggest returns the preferred note for a raw statement description, or
// an empty string when nothing has been learned for it yet.
func (s *Service) Suggest(ctx context.Context, rawDescription string) (string, error) {
	normalized := normalize(rawDescription)
	if normalized == "" {
		return "", nil
	}

	return s.repo.FindMatch(ctx, normalized)
}

// Learn stores a pattern-to-note mapping. Re-learning an existing pattern
// replaces its note.
func (s *Service) Learn(ctx context.Context, rawPattern, preferredNote string) error {
	pattern := normalize(rawPattern)
	note := strings.TrimSpace(preferredNote)

	if pattern == "" || note == "" {
		return ErrEmptyMapping
	}

	return s.repo.CreateMapping(ctx, pattern, note)
}

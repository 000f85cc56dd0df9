package student

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Store is the persistence boundary the service operates against.
// Emails handed to a Store are always normalized first.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	Insert(ctx context.Context, email string) (Record, error)
	Delete(ctx context.Context, email string) error
	UpdateEmail(ctx context.Context, oldEmail, newEmail string) (Record, error)
}

// BatchResult partitions a bulk add: every input lands in exactly one side.
type BatchResult struct {
	Added  []Record
	Failed []string
}

// Service validates and normalizes whitelist operations on top of a Store.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Normalize trims and lowercases an email for storage and comparison.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// List returns all whitelisted students, most recently created first.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx)
}

// Add whitelists a single email.
func (s *Service) Add(ctx context.Context, email string) (Record, error) {
	normalized := Normalize(email)
	if !emailPattern.MatchString(normalized) {
		return Record{}, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}
	return s.store.Insert(ctx, normalized)
}

// AddBatch applies Add to each input independently and never short-circuits.
// Failed entries carry the per-input reason for display.
func (s *Service) AddBatch(ctx context.Context, emails []string) BatchResult {
	var res BatchResult
	for _, email := range emails {
		rec, err := s.Add(ctx, email)
		if err != nil {
			res.Failed = append(res.Failed, err.Error())
			continue
		}
		res.Added = append(res.Added, rec)
	}
	return res
}

// Delete removes an email from the whitelist. Absent emails delete cleanly.
func (s *Service) Delete(ctx context.Context, email string) error {
	return s.store.Delete(ctx, Normalize(email))
}

// UpdateEmail replaces oldEmail with newEmail on the matching record.
func (s *Service) UpdateEmail(ctx context.Context, oldEmail, newEmail string) (Record, error) {
	normalizedNew := Normalize(newEmail)
	if !emailPattern.MatchString(normalizedNew) {
		return Record{}, fmt.Errorf("%w: %s", ErrInvalidEmail, newEmail)
	}
	return s.store.UpdateEmail(ctx, Normalize(oldEmail), normalizedNew)
}

// Package profile reads and updates the basic customer profile kept by the
// hosted backend.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound indicates the user has no stored profile yet.
	ErrNotFound = errors.New("profile: not found")
	// ErrInvalidInput is returned for malformed updates.
	ErrInvalidInput = errors.New("profile: invalid input")
)

// Profile is the customer contact information used to prefill checkout.
type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Update carries the fields to change; nil fields are left untouched.
type Update struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.FullName == nil && u.Phone == nil && u.Address == nil
}

// Source is the storage behind profiles.
type Source interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Upsert(ctx context.Context, userID string, u Update) (Profile, error)
}

// Service applies validation on top of a Source.
type Service struct {
	Source   Source
	Validate *validator.Validate
}

// Get returns the profile of userID.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Source.Get(ctx, userID)
}

// Update trims and validates u, then stores it.
func (s *Service) Update(ctx context.Context, userID string, u Update) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	u.FullName = trimPtr(u.FullName)
	u.Phone = trimPtr(u.Phone)
	u.Address = trimPtr(u.Address)
	if u.Empty() {
		return Profile{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(u); err != nil {
			return Profile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return s.Source.Upsert(ctx, userID, u)
}

// Prefill returns the profile or an empty one when none is stored.
func (s *Service) Prefill(ctx context.Context, userID string) (Profile, error) {
	p, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Profile{ID: userID}, nil
	}
	return p, err
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}

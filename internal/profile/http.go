package profile

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/storefront/internal/backend"
)

const profilesPath = "/rest/v1/cust_profiles"

// HTTPSource stores profiles in the backend cust_profiles table. Requests
// carry the caller's access token so row-level policies apply.
type HTTPSource struct {
	Client *backend.Client
}

// Get implements Source.
func (s *HTTPSource) Get(ctx context.Context, userID string) (Profile, error) {
	query := url.Values{}
	query.Set("id", backend.Eq(userID))
	query.Set("select", "id,full_name,phone,address")
	var rows []Profile
	if err := s.Client.Get(ctx, profilesPath, query, &rows); err != nil {
		return Profile{}, err
	}
	if len(rows) == 0 {
		return Profile{}, ErrNotFound
	}
	return rows[0], nil
}

// Upsert patches the row and inserts it when it does not exist yet.
func (s *HTTPSource) Upsert(ctx context.Context, userID string, u Update) (Profile, error) {
	query := url.Values{}
	query.Set("id", backend.Eq(userID))
	var rows []Profile
	if err := s.Client.Do(ctx, http.MethodPatch, profilesPath, query, u, &rows); err != nil {
		return Profile{}, err
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	insert := map[string]any{"id": userID}
	if u.FullName != nil {
		insert["full_name"] = *u.FullName
	}
	if u.Phone != nil {
		insert["phone"] = *u.Phone
	}
	if u.Address != nil {
		insert["address"] = *u.Address
	}
	if err := s.Client.Do(ctx, http.MethodPost, profilesPath, nil, insert, &rows); err != nil {
		return Profile{}, err
	}
	if len(rows) == 0 {
		return Profile{}, ErrNotFound
	}
	return rows[0], nil
}

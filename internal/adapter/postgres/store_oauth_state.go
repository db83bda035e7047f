package postgres

import (
	"context"
	"fmt"

	"github.com/myriagon/credvault/internal/domain/oauthstate"
)

func (s *Store) InsertOAuthState(ctx context.Context, rec *oauthstate.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO oauth_states (id, state_token, tenant_id, user_id, service_name,
			redirect_uri, scopes, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Token, rec.TenantID, rec.UserID, rec.Service,
		rec.RedirectURI, pgTextArray(rec.Scopes), rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert oauth state: %w", err)
	}
	return nil
}

// ConsumeOAuthState atomically deletes and returns the state row for the
// token. The DELETE...RETURNING guarantees a token redeems at most once even
// under concurrent callbacks.
func (s *Store) ConsumeOAuthState(ctx context.Context, token string) (*oauthstate.Record, error) {
	var rec oauthstate.Record
	err := s.pool.QueryRow(ctx,
		`DELETE FROM oauth_states WHERE state_token = $1
		 RETURNING id, state_token, tenant_id, user_id, service_name,
			redirect_uri, scopes, expires_at, created_at`, token,
	).Scan(&rec.ID, &rec.Token, &rec.TenantID, &rec.UserID, &rec.Service,
		&rec.RedirectURI, &rec.Scopes, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "consume oauth state")
	}
	return &rec, nil
}

func (s *Store) DeleteExpiredOAuthStates(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM oauth_states WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired oauth states: %w", err)
	}
	return tag.RowsAffected(), nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/myriagon/credvault/internal/domain/credential"
)

const credentialColumns = `id, tenant_id, service_name, credential_type, status,
	encrypted_tokens, token_nonce, scopes, token_expires_at, mirror_credential_id,
	created_at, updated_at`

func scanCredential(row scannable) (*credential.Record, error) {
	var (
		rec      credential.Record
		expires  *time.Time
		mirrorID *string
	)
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.Service, &rec.Kind, &rec.Status,
		&rec.EncryptedTokens, &rec.Nonce, &rec.Scopes, &expires, &mirrorID,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expires != nil {
		rec.ExpiresAt = *expires
	}
	if mirrorID != nil {
		rec.MirrorID = *mirrorID
	}
	return &rec, nil
}

// UpsertCredential inserts or replaces the credential for the record's
// (tenant_id, service_name) pair. An existing mirror_credential_id survives
// the upsert so reconnects keep updating the same mirrored credential.
func (s *Store) UpsertCredential(ctx context.Context, rec *credential.Record) (*credential.Record, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO credentials (tenant_id, service_name, credential_type, status,
			encrypted_tokens, token_nonce, scopes, token_expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (tenant_id, service_name) DO UPDATE SET
			credential_type = EXCLUDED.credential_type,
			status = EXCLUDED.status,
			encrypted_tokens = EXCLUDED.encrypted_tokens,
			token_nonce = EXCLUDED.token_nonce,
			scopes = EXCLUDED.scopes,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = now()
		 RETURNING `+credentialColumns,
		rec.TenantID, rec.Service, rec.Kind, rec.Status,
		rec.EncryptedTokens, rec.Nonce, pgTextArray(rec.Scopes), nullTime(rec.ExpiresAt))

	stored, err := scanCredential(row)
	if err != nil {
		return nil, fmt.Errorf("upsert credential %s/%s: %w", rec.TenantID, rec.Service, err)
	}
	return stored, nil
}

func (s *Store) GetCredential(ctx context.Context, tenantID string, service credential.Service) (*credential.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE tenant_id = $1 AND service_name = $2`, tenantID, service)

	rec, err := scanCredential(row)
	if err != nil {
		return nil, notFoundWrap(err, "get credential %s", service)
	}
	return rec, nil
}

func (s *Store) ListCredentials(ctx context.Context, tenantID string) ([]*credential.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE tenant_id = $1 ORDER BY service_name ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var recs []*credential.Record
	for rows.Next() {
		rec, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpdateCredentialTokens replaces the encrypted blob after a token refresh.
func (s *Store) UpdateCredentialTokens(ctx context.Context, id string, encrypted, nonce []byte, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE credentials SET encrypted_tokens = $2, token_nonce = $3,
			token_expires_at = $4, updated_at = now()
		 WHERE id = $1`,
		id, encrypted, nonce, nullTime(expiresAt))
	return execExpectOne(tag, err, "update credential tokens %s", id)
}

func (s *Store) UpdateCredentialStatus(ctx context.Context, tenantID string, service credential.Service, status credential.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE credentials SET status = $3, updated_at = now()
		 WHERE tenant_id = $1 AND service_name = $2`,
		tenantID, service, status)
	return execExpectOne(tag, err, "update credential status %s", service)
}

func (s *Store) SetCredentialMirrorID(ctx context.Context, id, mirrorID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE credentials SET mirror_credential_id = $2, updated_at = now()
		 WHERE id = $1`,
		id, mirrorID)
	return execExpectOne(tag, err, "set credential mirror id %s", id)
}

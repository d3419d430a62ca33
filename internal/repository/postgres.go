package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallbiznis/stravalink/internal/domain"
)

var _ CredentialStore = (*PostgresCredentialRepo)(nil)

// PostgresCredentialRepo implements CredentialStore on a pgx pool. Rows are
// keyed by owner_id; athlete_id carries an index so webhook lookups stay a
// single query.
type PostgresCredentialRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCredentialRepo(pool *pgxpool.Pool) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{pool: pool}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS strava_credentials (
	owner_id      TEXT PRIMARY KEY,
	athlete_id    TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at    BIGINT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_strava_credentials_athlete
	ON strava_credentials (athlete_id);
`

// EnsureSchema creates the credentials table if it does not exist.
func (r *PostgresCredentialRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const upsertCredentialSQL = `
INSERT INTO strava_credentials (owner_id, athlete_id, access_token, refresh_token, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (owner_id) DO UPDATE SET
	athlete_id    = EXCLUDED.athlete_id,
	access_token  = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	expires_at    = EXCLUDED.expires_at,
	updated_at    = EXCLUDED.updated_at
`

func (r *PostgresCredentialRepo) Store(ctx context.Context, ownerID string, cred domain.Credential) error {
	cred.OwnerID = ownerID
	cred.UpdatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx, upsertCredentialSQL,
		cred.OwnerID,
		cred.AthleteID,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt,
		cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

const selectByOwnerSQL = `
SELECT owner_id, athlete_id, access_token, refresh_token, expires_at, updated_at
FROM strava_credentials
WHERE owner_id = $1
`

func (r *PostgresCredentialRepo) GetByOwner(ctx context.Context, ownerID string) (*domain.Credential, error) {
	return r.scanOne(r.pool.QueryRow(ctx, selectByOwnerSQL, ownerID))
}

// A relinked athlete can leave stale rows behind under old owners; the
// most-recently-updated row wins, matching the store's last-writer-wins
// contract for the athlete mapping.
const selectByAthleteSQL = `
SELECT owner_id, athlete_id, access_token, refresh_token, expires_at, updated_at
FROM strava_credentials
WHERE athlete_id = $1
ORDER BY updated_at DESC
LIMIT 1
`

func (r *PostgresCredentialRepo) GetByAthleteID(ctx context.Context, athleteID string) (*domain.Credential, error) {
	return r.scanOne(r.pool.QueryRow(ctx, selectByAthleteSQL, athleteID))
}

func (r *PostgresCredentialRepo) scanOne(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	err := row.Scan(
		&cred.OwnerID,
		&cred.AthleteID,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.ExpiresAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return &cred, nil
}

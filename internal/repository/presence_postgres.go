package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wans112/web-toko/internal/domain"
)

type postgresPresenceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPresenceRepository stores presence on the users table. IDs
// that are not UUIDs cannot exist there and read as ErrNotFound.
func NewPostgresPresenceRepository(pool *pgxpool.Pool) PresenceRepository {
	return &postgresPresenceRepository{pool: pool}
}

func (r *postgresPresenceRepository) Set(ctx context.Context, userID string, online bool, at time.Time) (domain.PresenceRecord, error) {
	const query = `
        WITH prev AS (
            SELECT id, is_online, last_heartbeat_at FROM users WHERE id=$1 FOR UPDATE
        )
        UPDATE users u SET
            is_online=$2::boolean,
            last_heartbeat_at=CASE WHEN $2::boolean THEN $3 ELSE u.last_heartbeat_at END,
            updated_at=NOW()
        FROM prev WHERE u.id=prev.id
        RETURNING prev.is_online, prev.last_heartbeat_at`

	if _, err := uuid.Parse(userID); err != nil {
		return domain.PresenceRecord{}, ErrNotFound
	}

	prev := domain.PresenceRecord{UserID: userID}
	var last *time.Time
	if err := r.pool.QueryRow(ctx, query, userID, online, at).Scan(&prev.IsOnline, &last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PresenceRecord{}, ErrNotFound
		}
		return domain.PresenceRecord{}, err
	}
	if last != nil {
		prev.LastHeartbeatAt = *last
	}
	return prev, nil
}

func (r *postgresPresenceRepository) Get(ctx context.Context, userID string) (domain.PresenceRecord, error) {
	const query = `SELECT id::text, is_online, last_heartbeat_at FROM users WHERE id=$1`

	if _, err := uuid.Parse(userID); err != nil {
		return domain.PresenceRecord{}, ErrNotFound
	}

	rec, err := scanPresence(r.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PresenceRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *postgresPresenceRepository) ListOnline(ctx context.Context) ([]domain.PresenceRecord, error) {
	const query = `
        SELECT id::text, is_online, last_heartbeat_at
        FROM users WHERE is_online
        ORDER BY last_heartbeat_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PresenceRecord
	for rows.Next() {
		rec, err := scanPresence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *postgresPresenceRepository) ExpireBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `
        UPDATE users SET is_online=FALSE, updated_at=NOW()
        WHERE is_online AND (last_heartbeat_at IS NULL OR last_heartbeat_at <= $1)
        RETURNING id::text`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPresence(row pgx.Row) (domain.PresenceRecord, error) {
	var (
		rec  domain.PresenceRecord
		last *time.Time
	)
	if err := row.Scan(&rec.UserID, &rec.IsOnline, &last); err != nil {
		return domain.PresenceRecord{}, err
	}
	if last != nil {
		rec.LastHeartbeatAt = *last
	}
	return rec, nil
}

// internal/ban/postgres.go
package ban

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duelhouse/wager-service/internal/models"
)

// PGStore persists the ban list in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE bans (
//	    user_id BIGINT PRIMARY KEY,
//	    reason TEXT NOT NULL DEFAULT '',
//	    banned_by BIGINT NOT NULL,
//	    banned_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) IsBanned(ctx context.Context, userID int64) (bool, error) {
	var banned bool
	q := `SELECT EXISTS(SELECT 1 FROM bans WHERE user_id=$1)`
	if err := s.pool.QueryRow(ctx, q, userID).Scan(&banned); err != nil {
		return false, fmt.Errorf("failed to check ban: %w", err)
	}
	return banned, nil
}

func (s *PGStore) Ban(ctx context.Context, b models.Ban) error {
	q := `
	INSERT INTO bans (user_id, reason, banned_by)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id)
	DO UPDATE SET reason=EXCLUDED.reason, banned_by=EXCLUDED.banned_by, banned_at=now()
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, b.UserID, b.Reason, b.BannedBy)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert ban: %w", err)
	}
	return nil
}

func (s *PGStore) Unban(ctx context.Context, userID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bans WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ban: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotBanned
	}
	return nil
}

func (s *PGStore) List(ctx context.Context) ([]models.Ban, error) {
	q := `SELECT user_id, reason, banned_by, banned_at FROM bans ORDER BY banned_at DESC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list bans: %w", err)
	}
	defer rows.Close()

	var out []models.Ban
	for rows.Next() {
		var b models.Ban
		if err := rows.Scan(&b.UserID, &b.Reason, &b.BannedBy, &b.BannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ban row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

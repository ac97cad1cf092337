// internal/ledger/postgres.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duelhouse/wager-service/internal/models"
)

// PGLedger persists accounts and match history in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE accounts (
//	    id BIGINT PRIMARY KEY,
//	    username TEXT NOT NULL,
//	    password TEXT NOT NULL,
//	    balance DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    total_deposited DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    total_wagered DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    total_won DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    total_lost DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    games_played INT NOT NULL DEFAULT 0,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    last_activity TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE match_history (
//	    id UUID PRIMARY KEY,
//	    user_id BIGINT NOT NULL REFERENCES accounts(id),
//	    kind TEXT NOT NULL,
//	    stake DOUBLE PRECISION NOT NULL,
//	    win_amount DOUBLE PRECISION NOT NULL,
//	    outcome TEXT NOT NULL,
//	    played_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PGLedger struct {
	pool *pgxpool.Pool
}

// NewPGLedger wraps an existing connection pool.
func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool}
}

// Connect builds a pool from a postgres URL and pings it.
func Connect(ctx context.Context, url string) (*PGLedger, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return &PGLedger{pool: pool}, nil
}

// Close releases the pool.
func (l *PGLedger) Close() {
	l.pool.Close()
}

// Pool exposes the underlying pool for collaborators sharing the connection.
func (l *PGLedger) Pool() *pgxpool.Pool {
	return l.pool
}

// CreateAccount inserts a new account row; existing ids are left untouched.
func (l *PGLedger) CreateAccount(ctx context.Context, acc *models.Account) error {
	q := `INSERT INTO accounts (id, username, password, balance, total_deposited)
	      VALUES ($1, $2, $3, $4, $4)
	      ON CONFLICT (id) DO NOTHING`
	return pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, acc.ID, acc.Username, acc.Password, acc.Balance)
		return err
	})
}

// AccountByUsername loads a full account row for login.
func (l *PGLedger) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	q := `
	SELECT id, username, password, balance, total_deposited, total_wagered,
	       total_won, total_lost, games_played, created_at, last_activity
	FROM accounts
	WHERE username=$1
	`
	err := l.pool.QueryRow(ctx, q, username).Scan(
		&a.ID, &a.Username, &a.Password, &a.Balance, &a.TotalDeposited,
		&a.TotalWagered, &a.TotalWon, &a.TotalLost, &a.GamesPlayed,
		&a.CreatedAt, &a.LastActivity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Balance implements Ledger.
func (l *PGLedger) Balance(ctx context.Context, userID int64) (float64, error) {
	var balance float64
	err := l.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE id=$1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoAccount
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Debit implements Ledger. The conditional UPDATE makes the funds check and
// the subtraction one atomic statement, so concurrent debits cannot overdraw.
func (l *PGLedger) Debit(ctx context.Context, userID int64, amount float64) (float64, error) {
	var newBalance float64
	q := `
	UPDATE accounts
	SET balance = balance - $1, last_activity = now()
	WHERE id = $2 AND balance >= $1
	RETURNING balance
	`
	err := l.pool.QueryRow(ctx, q, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either no account or not enough funds; disambiguate for the caller.
		if _, balErr := l.Balance(ctx, userID); errors.Is(balErr, ErrNoAccount) {
			return 0, ErrNoAccount
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Credit implements Ledger.
func (l *PGLedger) Credit(ctx context.Context, userID int64, amount float64) (float64, error) {
	var newBalance float64
	q := `
	UPDATE accounts
	SET balance = balance + $1, last_activity = now()
	WHERE id = $2
	RETURNING balance
	`
	err := l.pool.QueryRow(ctx, q, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoAccount
	}
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// AppendHistory implements Ledger: the history row insert and the aggregate
// update commit together.
func (l *PGLedger) AppendHistory(ctx context.Context, rec models.MatchRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	won := 0.0
	lost := 0.0
	if rec.WinAmount > rec.Stake {
		won = rec.WinAmount - rec.Stake
	} else {
		lost = rec.Stake - rec.WinAmount
	}

	return pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO match_history (id, user_id, kind, stake, win_amount, outcome)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.ID, rec.UserID, rec.Kind, rec.Stake, rec.WinAmount, rec.Outcome,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match record: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE accounts
			 SET games_played = games_played + 1,
			     total_wagered = total_wagered + $1,
			     total_won = total_won + $2,
			     total_lost = total_lost + $3,
			     last_activity = now()
			 WHERE id = $4`,
			rec.Stake, won, lost, rec.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to update account aggregates: %w", err)
		}
		return nil
	})
}

// RecentMatches implements HistoryReader, newest first.
func (l *PGLedger) RecentMatches(ctx context.Context, userID int64, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	q := `
	SELECT id, user_id, kind, stake, win_amount, outcome, played_at
	FROM match_history
	WHERE user_id=$1
	ORDER BY played_at DESC
	LIMIT $2
	`
	rows, err := l.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.MatchRecord
	for rows.Next() {
		var r models.MatchRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &r.Stake, &r.WinAmount, &r.Outcome, &r.PlayedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Deposit adds funds and tracks the lifetime deposit total.
func (l *PGLedger) Deposit(ctx context.Context, userID int64, amount float64) error {
	q := `
	UPDATE accounts
	SET balance = balance + $1, total_deposited = total_deposited + $1, last_activity = now()
	WHERE id = $2
	`
	tag, err := l.pool.Exec(ctx, q, amount, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoAccount
	}
	return nil
}

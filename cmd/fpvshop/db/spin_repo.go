package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SpinReader - чтения, из которых складывается решение о вращении.
type SpinReader interface {
	ConfirmedOrderStats(ctx context.Context, userID int64, window models.DayWindow) (models.OrderStats, error)
	CountSpins(ctx context.Context, userID int64, window models.DayWindow) (int, error)
	// SpinByIdempotencyKey возвращает ErrNotFound, если записи с таким ключом нет.
	SpinByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.SpinRecord, error)
}

// SpinTx - операции, доступные внутри атомарного шага выдачи награды.
type SpinTx interface {
	SpinReader
	InsertSpin(ctx context.Context, rec *models.SpinRecord) error
}

type SpinRepoPG struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSpinRepoPG(db *sql.DB, logger *zap.Logger) *SpinRepoPG {
	return &SpinRepoPG{db: db, logger: logger}
}

// InSpinTx выполняет fn в транзакции, удерживая блокировку строки пользователя.
// Все вращения одного пользователя выполняются строго последовательно.
// FOR NO KEY UPDATE не конфликтует с FOR KEY SHARE, который берут вставки
// заказов по внешнему ключу, поэтому создание заказов не ждёт вращения.
func (r *SpinRepoPG) InSpinTx(ctx context.Context, userID int64, fn func(tx SpinTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 FOR NO KEY UPDATE`, userID).Scan(&id)
	if err != nil {
		r.rollback(tx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("error locking user: %w", err)
	}

	if err := fn(&spinTxPG{tx: tx}); err != nil {
		r.rollback(tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitUnknown, err)
	}
	return nil
}

// ReadSpins выполняет fn на согласованном снимке без блокировок.
func (r *SpinRepoPG) ReadSpins(ctx context.Context, userID int64, fn func(rd SpinReader) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer r.rollback(tx)

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("error fetching user: %w", err)
	}
	return fn(&spinTxPG{tx: tx})
}

func (r *SpinRepoPG) SpinsByUserID(ctx context.Context, userID int64) ([]models.SpinRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, amount, status, idempotency_key, created_at FROM spin_records WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching spins: %w", err)
	}
	defer rows.Close()
	var spins []models.SpinRecord
	for rows.Next() {
		var s models.SpinRecord
		if err := rows.Scan(&s.ID, &s.UserID, &s.Amount, &s.Status, &s.IdempotencyKey, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning spin: %w", err)
		}
		spins = append(spins, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over spins: %w", err)
	}
	return spins, nil
}

// SpinTotalsByStatus суммирует награды пользователя по статусам.
func (r *SpinRepoPG) SpinTotalsByStatus(ctx context.Context, userID int64) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COALESCE(SUM(amount), 0)::BIGINT FROM spin_records WHERE user_id=$1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching spin totals: %w", err)
	}
	defer rows.Close()
	totals := make(map[string]int64)
	for rows.Next() {
		var (
			status string
			sum    int64
		)
		if err := rows.Scan(&status, &sum); err != nil {
			return nil, fmt.Errorf("error scanning spin totals: %w", err)
		}
		totals[status] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over spin totals: %w", err)
	}
	return totals, nil
}

// UpdateSpinStatus меняет статус награды, только если текущий статус равен from.
func (r *SpinRepoPG) UpdateSpinStatus(ctx context.Context, spinID int64, from, to string) (*models.SpinRecord, error) {
	var s models.SpinRecord
	err := r.db.QueryRowContext(ctx,
		`UPDATE spin_records SET status=$1 WHERE id=$2 AND status=$3 RETURNING id, user_id, amount, status, idempotency_key, created_at`,
		to, spinID, from,
	).Scan(&s.ID, &s.UserID, &s.Amount, &s.Status, &s.IdempotencyKey, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error updating spin status: %w", err)
	}
	return &s, nil
}

func (r *SpinRepoPG) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.logger.Error("error rolling back transaction", zap.Error(err))
	}
}

type spinTxPG struct {
	tx *sql.Tx
}

func (t *spinTxPG) ConfirmedOrderStats(ctx context.Context, userID int64, window models.DayWindow) (models.OrderStats, error) {
	var stats models.OrderStats
	var total decimal.NullDecimal
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(amount) FROM orders WHERE user_id=$1 AND status=$2 AND created_at >= $3 AND created_at < $4`,
		userID, models.OrderStatusConfirmed, window.Start, window.End,
	).Scan(&stats.Count, &total)
	if err != nil {
		return models.OrderStats{}, fmt.Errorf("error fetching order stats: %w", err)
	}
	stats.Total = decimal.Zero
	if total.Valid {
		stats.Total = total.Decimal
	}
	return stats, nil
}

func (t *spinTxPG) CountSpins(ctx context.Context, userID int64, window models.DayWindow) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spin_records WHERE user_id=$1 AND created_at >= $2 AND created_at < $3`,
		userID, window.Start, window.End,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting spins: %w", err)
	}
	return n, nil
}

func (t *spinTxPG) SpinByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.SpinRecord, error) {
	var s models.SpinRecord
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, user_id, amount, status, idempotency_key, created_at FROM spin_records WHERE user_id=$1 AND idempotency_key=$2`,
		userID, key,
	).Scan(&s.ID, &s.UserID, &s.Amount, &s.Status, &s.IdempotencyKey, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching spin by key: %w", err)
	}
	return &s, nil
}

func (t *spinTxPG) InsertSpin(ctx context.Context, rec *models.SpinRecord) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO spin_records (user_id, amount, status, idempotency_key, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		rec.UserID, rec.Amount, rec.Status, rec.IdempotencyKey, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("error inserting spin: %w", err)
	}
	return nil
}

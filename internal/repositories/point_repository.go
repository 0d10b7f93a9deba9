package repositories

import (
	"context"
	"fmt"

	"ecomission/internal/database"

	"go.uber.org/zap"
)

type pointRepository struct {
	*BaseRepository
}

// NewPointRepository creates the ledger over users.total_points
func NewPointRepository(db *database.Manager, logger *zap.Logger) PointRepository {
	return &pointRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// CreditPoints adds amount to the user's balance inside the caller's transaction
func (r *pointRepository) CreditPoints(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	result, err := r.ExecContext(ctx,
		`UPDATE users SET total_points = total_points + $2 WHERE id = $1`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to credit points: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	r.GetLogger().Info("Points credited",
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
	)
	return nil
}

func (r *pointRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.QueryRowContext(ctx, `SELECT total_points FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		return 0, r.HandleNotFound(err)
	}
	return balance, nil
}

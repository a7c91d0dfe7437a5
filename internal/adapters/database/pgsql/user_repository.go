package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/wallet_ledger/internal/apperrors"
	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/wallet_ledger/internal/models"
	"github.com/SscSPs/wallet_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxUserRepository struct {
	BaseRepository
}

func newPgxUserRepository(pool *pgxpool.Pool) portsrepo.UserRepositoryFacade {
	return &PgxUserRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxUserRepository implements portsrepo.UserRepositoryFacade
var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	modelUser := mapping.ToModelUser(user)
	query := `
		INSERT INTO users (user_id, name, email, created_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.Pool.Exec(ctx, query, modelUser.UserID, modelUser.Name, modelUser.Email, modelUser.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("%w: user %s or email %s already registered", apperrors.ErrDuplicate, modelUser.UserID, modelUser.Email)
		}
		return fmt.Errorf("failed to save user %s: %w", modelUser.UserID, err)
	}
	return nil
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, name, email, created_at
		FROM users
		WHERE user_id = $1;
	`
	var modelUser models.User
	err := r.Pool.QueryRow(ctx, query, userID).Scan(
		&modelUser.UserID,
		&modelUser.Name,
		&modelUser.Email,
		&modelUser.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to find user %s: %w", userID, err)
	}
	user := mapping.ToDomainUser(modelUser)
	return &user, nil
}

func (r *PgxUserRepository) OwnerExists(ctx context.Context, ownerID string) (bool, error) {
	var exists bool
	err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1);`, ownerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check owner %s: %w", ownerID, err)
	}
	return exists, nil
}

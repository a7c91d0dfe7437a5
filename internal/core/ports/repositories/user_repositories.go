package repositories

import (
	"context"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
)

// OwnerReader answers whether a wallet owner exists.
type OwnerReader interface {
	OwnerExists(ctx context.Context, ownerID string) (bool, error)
}

// UserReader defines read operations for user data.
type UserReader interface {
	OwnerReader

	// FindUserByID returns the user or apperrors.ErrNotFound.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// UserWriter defines write operations for user data.
type UserWriter interface {
	// SaveUser persists a new user. Returns apperrors.ErrDuplicate on a taken email.
	SaveUser(ctx context.Context, user domain.User) error
}

// UserRepositoryFacade combines all user-related repository interfaces.
type UserRepositoryFacade interface {
	UserReader
	UserWriter
}

/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the domain-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/betterbns/domain-service/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the set of methods for interacting with the database.
// Usernames are always passed pre-normalized (lowercase, validated).
type Repository interface {
	// Identity methods.
	// CreateUserIdentity inserts a new identity row. The unique constraint on
	// username is the only duplicate guard, so two concurrent claims of the
	// same name resolve to exactly one winner and one ErrDomainTaken.
	CreateUserIdentity(ctx context.Context, user *domain.UserIdentity) error
	FindUserByUsername(ctx context.Context, username string) (*domain.UserIdentity, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	FindLatestUserByWallet(ctx context.Context, walletAddress string) (*domain.UserIdentity, error)
	UpdateUserProfile(ctx context.Context, username string, update domain.UpdateProfileRequest) (*domain.UserIdentity, error)
	IncrementProfileViews(ctx context.Context, userID uuid.UUID) error

	// Claim audit methods, used by the scheduled reconciliation job.
	ListUnverifiedClaims(ctx context.Context, limit int) ([]domain.UserIdentity, error)
	MarkUserVerified(ctx context.Context, userID uuid.UUID) error

	// SBT methods
	AddSBT(ctx context.Context, sbt *domain.SBT) error
	ListSBTsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.SBT, error)
	FindSBTByTokenID(ctx context.Context, tokenID string) (*domain.SBT, error)
	IncrementSBTsIssuedByWallet(ctx context.Context, issuerAddress string) error
}

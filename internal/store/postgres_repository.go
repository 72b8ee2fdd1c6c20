/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to user identities, domain claims, and SBTs.
 *
 * Expected schema:
 *   users(id uuid pk, username text unique, wallet_address text, display_name text,
 *         claim_tx_id text, claim_fee_microstx bigint, claimed_at timestamptz,
 *         blockchain_confirmed bool, bio text, avatar_url text, banner_url text,
 *         website text, location text, is_public bool, social_links jsonb,
 *         is_verified bool, last_active timestamptz, profile_views bigint,
 *         sbts_received bigint, sbts_issued bigint, created_at timestamptz,
 *         updated_at timestamptz)
 *   sbts(id uuid pk, user_id uuid fk->users, token_id text unique, name text,
 *        description text, image_url text, issuer text, issuer_address text,
 *        issued_at timestamptz, metadata jsonb)
 * Usernames are stored lowercase; the unique index on users.username is what
 * makes concurrent claims safe.
 *
 * @dependencies
 * - context, encoding/json, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/betterbns/domain-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrDomainTaken  = errors.New("domain already claimed")
	ErrSBTNotFound  = errors.New("sbt not found")
	ErrSBTExists    = errors.New("sbt token id already exists")
)

const pgUniqueViolation = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

const userColumns = `id, username, wallet_address, display_name,
	claim_tx_id, claim_fee_microstx, claimed_at, blockchain_confirmed,
	bio, avatar_url, banner_url, website, location, is_public,
	social_links, is_verified, last_active,
	profile_views, sbts_received, sbts_issued, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.UserIdentity, error) {
	var u domain.UserIdentity
	var socialLinks []byte
	err := row.Scan(
		&u.ID, &u.Username, &u.WalletAddress, &u.DisplayName,
		&u.DomainClaim.TxID, &u.DomainClaim.FeeMicroSTX, &u.DomainClaim.ClaimedAt, &u.DomainClaim.BlockchainConfirmed,
		&u.Profile.Bio, &u.Profile.AvatarURL, &u.Profile.BannerURL, &u.Profile.Website, &u.Profile.Location, &u.Profile.IsPublic,
		&socialLinks, &u.IsVerified, &u.LastActive,
		&u.Stats.ProfileViews, &u.Stats.SBTsReceived, &u.Stats.SBTsIssued, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(socialLinks) > 0 {
		if err := json.Unmarshal(socialLinks, &u.SocialLinks); err != nil {
			return nil, fmt.Errorf("failed to decode social links: %w", err)
		}
	}
	return &u, nil
}

// CreateUserIdentity inserts a new identity row. A username collision surfaces
// as ErrDomainTaken via the unique constraint, never via a pre-check.
func (r *PostgresRepository) CreateUserIdentity(ctx context.Context, user *domain.UserIdentity) error {
	socialLinks, err := json.Marshal(user.SocialLinks)
	if err != nil {
		return fmt.Errorf("failed to encode social links: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO users (
			id, username, wallet_address, display_name,
			claim_tx_id, claim_fee_microstx, claimed_at, blockchain_confirmed,
			bio, avatar_url, banner_url, website, location, is_public,
			social_links, is_verified, last_active,
			profile_views, sbts_received, sbts_issued, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		user.ID, user.Username, user.WalletAddress, user.DisplayName,
		user.DomainClaim.TxID, user.DomainClaim.FeeMicroSTX, user.DomainClaim.ClaimedAt, user.DomainClaim.BlockchainConfirmed,
		user.Profile.Bio, user.Profile.AvatarURL, user.Profile.BannerURL, user.Profile.Website, user.Profile.Location, user.Profile.IsPublic,
		socialLinks, user.IsVerified, user.LastActive,
		user.Stats.ProfileViews, user.Stats.SBTsReceived, user.Stats.SBTsIssued, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDomainTaken
		}
		return fmt.Errorf("failed to insert user identity: %w", err)
	}
	return nil
}

// FindUserByUsername retrieves an identity by its normalized username.
func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*domain.UserIdentity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UsernameExists reports whether a normalized username is already claimed.
func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// FindLatestUserByWallet retrieves the most recently claimed identity bound to
// a wallet. Wallets may own multiple domains, so "latest" is the tiebreak.
func (r *PostgresRepository) FindLatestUserByWallet(ctx context.Context, walletAddress string) (*domain.UserIdentity, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE wallet_address = $1 ORDER BY claimed_at DESC LIMIT 1`, walletAddress)
	user, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateUserProfile updates the mutable profile fields of an identity and
// returns the updated row. The username, wallet binding, and domain claim
// columns are never touched here.
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, username string, update domain.UpdateProfileRequest) (*domain.UserIdentity, error) {
	profile := domain.Profile{IsPublic: true}
	if update.Profile != nil {
		profile = *update.Profile
	}
	links := domain.SocialLinks{}
	if update.SocialLinks != nil {
		links = *update.SocialLinks
	}
	socialLinks, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("failed to encode social links: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE users SET
			display_name = $2,
			bio = $3, avatar_url = $4, banner_url = $5, website = $6, location = $7, is_public = $8,
			social_links = $9,
			last_active = now(), updated_at = now()
		WHERE username = $1
		RETURNING `+userColumns,
		username, update.DisplayName,
		profile.Bio, profile.AvatarURL, profile.BannerURL, profile.Website, profile.Location, profile.IsPublic,
		socialLinks,
	)
	user, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// IncrementProfileViews bumps the public view counter and touches last_active.
func (r *PostgresRepository) IncrementProfileViews(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET profile_views = profile_views + 1, last_active = now() WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUnverifiedClaims returns identities whose claims have not yet passed the
// scheduled re-verification audit, oldest first.
func (r *PostgresRepository) ListUnverifiedClaims(ctx context.Context, limit int) ([]domain.UserIdentity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_verified = false ORDER BY claimed_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.UserIdentity
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// MarkUserVerified flips the audit flag after a claim re-verifies on-chain.
func (r *PostgresRepository) MarkUserVerified(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_verified = true, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddSBT attaches a badge to a user and bumps the received counter in one
// transaction. Duplicate token ids surface as ErrSBTExists.
func (r *PostgresRepository) AddSBT(ctx context.Context, sbt *domain.SBT) error {
	metadata, err := json.Marshal(sbt.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode sbt metadata: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sbts (id, user_id, token_id, name, description, image_url, issuer, issuer_address, issued_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sbt.ID, sbt.UserID, sbt.TokenID, sbt.Name, sbt.Description, sbt.ImageURL, sbt.Issuer, sbt.IssuerAddress, sbt.IssuedAt, metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSBTExists
		}
		return fmt.Errorf("failed to insert sbt: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET sbts_received = sbts_received + 1, updated_at = now() WHERE id = $1`, sbt.UserID)
	if err != nil {
		return fmt.Errorf("failed to bump sbts_received: %w", err)
	}

	return tx.Commit(ctx)
}

func scanSBT(row rowScanner) (*domain.SBT, error) {
	var s domain.SBT
	var metadata []byte
	err := row.Scan(&s.ID, &s.UserID, &s.TokenID, &s.Name, &s.Description, &s.ImageURL, &s.Issuer, &s.IssuerAddress, &s.IssuedAt, &metadata)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode sbt metadata: %w", err)
		}
	}
	return &s, nil
}

const sbtColumns = `id, user_id, token_id, name, description, image_url, issuer, issuer_address, issued_at, metadata`

// ListSBTsByUserID returns every badge attached to a user, newest first.
func (r *PostgresRepository) ListSBTsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.SBT, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sbtColumns+` FROM sbts WHERE user_id = $1 ORDER BY issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sbts []domain.SBT
	for rows.Next() {
		sbt, err := scanSBT(rows)
		if err != nil {
			return nil, err
		}
		sbts = append(sbts, *sbt)
	}
	return sbts, rows.Err()
}

// FindSBTByTokenID retrieves a badge by its on-chain token id.
func (r *PostgresRepository) FindSBTByTokenID(ctx context.Context, tokenID string) (*domain.SBT, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sbtColumns+` FROM sbts WHERE token_id = $1`, tokenID)
	sbt, err := scanSBT(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSBTNotFound
		}
		return nil, err
	}
	return sbt, nil
}

// IncrementSBTsIssuedByWallet bumps the issued counter for whichever identities
// belong to the issuing wallet. Issuers without a claimed domain are fine; the
// update simply matches no rows.
func (r *PostgresRepository) IncrementSBTsIssuedByWallet(ctx context.Context, issuerAddress string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET sbts_issued = sbts_issued + 1, updated_at = now() WHERE wallet_address = $1`, issuerAddress)
	return err
}

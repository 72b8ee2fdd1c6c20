/**
 * @description
 * This file contains the core business logic for the domain-service. The `Service`
 * struct orchestrates the domain claim flow, coordinating between the database
 * repository, the chain indexer client, the IPFS pinning client, and the message broker.
 *
 * Key features:
 * - Implements the two-phase claim protocol: await on-chain confirmation of the
 *   fee payment, independently re-verify it, then finalize the identity record.
 * - Duplicate usernames are rejected by the storage layer's unique constraint,
 *   so racing claims always produce exactly one winner.
 * - Publishes events to RabbitMQ for asynchronous processing by other services.
 *
 * @dependencies
 * - context, errors, fmt, log, regexp, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/pinataclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/betterbns/domain-service/internal/domain"
	"github.com/betterbns/domain-service/internal/store"
	"github.com/betterbns/domain-service/pkg/pinataclient"
	"github.com/betterbns/domain-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

const (
	maxUsernameLength    = 63
	maxSBTNameLength     = 64
	maxSBTDescLength     = 256
	maxSBTIssuerLength   = 64
	maxSBTImageURLLength = 256
)

var (
	ErrInvalidUsername     = errors.New("invalid username")
	ErrMissingClaimFields  = errors.New("username, wallet address, and transaction id are required")
	ErrChainRejected       = errors.New("payment transaction was rejected by the blockchain")
	ErrConfirmationTimeout = errors.New("payment confirmation timed out")
	ErrNotProfileOwner     = errors.New("wallet does not own this domain")
	ErrInvalidSBT          = errors.New("invalid sbt payload")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Pinner is the IPFS pinning capability the service depends on.
type Pinner interface {
	PinJSON(ctx context.Context, name string, content any) (*pinataclient.PinResult, error)
	PinFile(ctx context.Context, filename string, content io.Reader) (*pinataclient.PinResult, error)
}

// Service provides the core business logic for domain claims and profiles.
type Service struct {
	repo     store.Repository
	poller   *ConfirmationPoller
	chain    ChainReader
	pinner   Pinner
	producer rabbitmq.Publisher

	treasuryAddress string
	claimFee        int64 // micro-STX

	contractAddress string
	bnsContract     string
	sbtContract     string
	network         string

	rateLimiter RateLimiter
}

// NewService creates a new domain service instance. maxAttempts and
// pollInterval bound the confirmation wait; treasuryAddress and claimFee
// define the required payment.
func NewService(
	repo store.Repository,
	chain ChainReader,
	pinner Pinner,
	producer rabbitmq.Publisher,
	treasuryAddress string,
	claimFee int64,
	maxAttempts int,
	pollInterval time.Duration,
	contractAddress string,
	bnsContract string,
	sbtContract string,
	network string,
) *Service {
	return &Service{
		repo:            repo,
		poller:          NewConfirmationPoller(chain, maxAttempts, pollInterval),
		chain:           chain,
		pinner:          pinner,
		producer:        producer,
		treasuryAddress: treasuryAddress,
		claimFee:        claimFee,
		contractAddress: contractAddress,
		bnsContract:     bnsContract,
		sbtContract:     sbtContract,
		network:         network,
	}
}

// normalizeAndValidateUsername case-folds and validates a requested name.
// Names are DNS-ish labels: lowercase letters, digits, and hyphens, with no
// leading or trailing hyphen. An optional ".btc" suffix is tolerated and
// stripped since the frontend sometimes sends the full domain.
func normalizeAndValidateUsername(input string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(input))
	name = strings.TrimSuffix(name, ".btc")
	if name == "" || len(name) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	if !usernamePattern.MatchString(name) {
		return "", ErrInvalidUsername
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return "", ErrInvalidUsername
	}
	return name, nil
}

// ClaimDomain runs the full claim finalization flow for a username:
// await confirmation of the fee payment, verify it against the expected
// sender/recipient/amount, then persist the identity. The record used for
// verification is always one this service fetched itself.
func (s *Service) ClaimDomain(ctx context.Context, req domain.ClaimDomainRequest) (*domain.UserIdentity, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.WalletAddress) == "" || strings.TrimSpace(req.TxID) == "" {
		return nil, ErrMissingClaimFields
	}
	username, err := normalizeAndValidateUsername(req.Username)
	if err != nil {
		return nil, err
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	txID := strings.TrimSpace(req.TxID)

	// Cheap early exit for taken names. This is advisory only; the unique
	// constraint at insert time is what actually decides races.
	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, store.ErrDomainTaken
	}

	log.Printf("level=info component=claim_flow username=%s tx_id=%s msg=\"awaiting payment confirmation\"", username, txID)
	verdict, err := s.poller.AwaitConfirmation(ctx, txID)
	if err != nil {
		return nil, err
	}
	switch verdict.State {
	case ConfirmationAborted:
		log.Printf("level=warn component=claim_flow username=%s tx_id=%s status=%s msg=\"payment rejected on-chain\"", username, txID, verdict.Record.TxStatus)
		return nil, ErrChainRejected
	case ConfirmationTimedOut:
		log.Printf("level=warn component=claim_flow username=%s tx_id=%s attempts=%d msg=\"confirmation timed out\"", username, txID, verdict.Attempts)
		return nil, ErrConfirmationTimeout
	}

	if err := VerifyPayment(verdict.Record, wallet, s.treasuryAddress, s.claimFee); err != nil {
		log.Printf("level=warn component=claim_flow username=%s tx_id=%s msg=\"payment verification failed\" err=%v", username, txID, err)
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.UserIdentity{
		ID:            uuid.New(),
		Username:      username,
		WalletAddress: wallet,
		DisplayName:   strings.TrimSpace(req.Username),
		DomainClaim: domain.DomainClaim{
			TxID:                txID,
			FeeMicroSTX:         s.claimFee,
			ClaimedAt:           now,
			BlockchainConfirmed: true,
		},
		Profile: domain.Profile{
			Bio:      fmt.Sprintf("Welcome to %s.btc", username),
			IsPublic: true,
		},
		LastActive: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.CreateUserIdentity(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("level=info component=claim_flow username=%s wallet=%s tx_id=%s msg=\"domain claimed\"", username, wallet, txID)

	if s.producer != nil {
		event := rabbitmq.DomainClaimedEvent{
			Username:      user.Username,
			WalletAddress: user.WalletAddress,
			TxID:          txID,
			FeeMicroSTX:   s.claimFee,
			ClaimedAt:     now,
		}
		if err := s.producer.PublishDomainClaimed(ctx, event); err != nil {
			log.Printf("level=warn component=claim_flow username=%s msg=\"domain claimed event publish failed\" err=%v", username, err)
		}
	}

	return user, nil
}

// CheckAvailability reports whether a username can still be claimed. The
// returned name is the normalized form that would be stored.
func (s *Service) CheckAvailability(ctx context.Context, rawUsername string) (string, bool, error) {
	username, err := normalizeAndValidateUsername(rawUsername)
	if err != nil {
		return "", false, err
	}
	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return "", false, err
	}
	return username, !taken, nil
}

// GetDomain retrieves the identity bound to a username.
func (s *Service) GetDomain(ctx context.Context, rawUsername string) (*domain.UserIdentity, error) {
	username, err := normalizeAndValidateUsername(rawUsername)
	if err != nil {
		return nil, err
	}
	return s.repo.FindUserByUsername(ctx, username)
}

// GetProfile retrieves an identity with its badges for public display and
// bumps the profile view counter. Counter failures are not user-visible.
func (s *Service) GetProfile(ctx context.Context, rawUsername string) (*domain.UserIdentity, []domain.SBT, error) {
	user, err := s.GetDomain(ctx, rawUsername)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.IncrementProfileViews(ctx, user.ID); err != nil {
		log.Printf("level=warn component=profile username=%s msg=\"profile view increment failed\" err=%v", user.Username, err)
	}
	sbts, err := s.repo.ListSBTsByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, sbts, nil
}

// UpdateProfile applies profile edits for a domain. Only the wallet that
// claimed the domain may edit it; the username itself is immutable.
func (s *Service) UpdateProfile(ctx context.Context, rawUsername, sessionWallet string, update domain.UpdateProfileRequest) (*domain.UserIdentity, error) {
	username, err := normalizeAndValidateUsername(rawUsername)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.WalletAddress != sessionWallet {
		return nil, ErrNotProfileOwner
	}
	if strings.TrimSpace(update.DisplayName) == "" {
		update.DisplayName = user.DisplayName
	}
	return s.repo.UpdateUserProfile(ctx, username, update)
}

// FindByWallet retrieves the most recent identity bound to a wallet address.
func (s *Service) FindByWallet(ctx context.Context, walletAddress string) (*domain.UserIdentity, error) {
	wallet := strings.TrimSpace(walletAddress)
	if wallet == "" {
		return nil, store.ErrUserNotFound
	}
	return s.repo.FindLatestUserByWallet(ctx, wallet)
}

// ListSBTs returns the badges attached to a username.
func (s *Service) ListSBTs(ctx context.Context, rawUsername string) ([]domain.SBT, error) {
	user, err := s.GetDomain(ctx, rawUsername)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSBTsByUserID(ctx, user.ID)
}

// GetSBT retrieves a badge by its token id.
func (s *Service) GetSBT(ctx context.Context, tokenID string) (*domain.SBT, error) {
	id := strings.TrimSpace(tokenID)
	if id == "" {
		return nil, store.ErrSBTNotFound
	}
	return s.repo.FindSBTByTokenID(ctx, id)
}

func validateSBTFields(name, description, issuer, imageURL string) error {
	if strings.TrimSpace(name) == "" || len(name) > maxSBTNameLength {
		return fmt.Errorf("%w: name is required and must be %d characters or less", ErrInvalidSBT, maxSBTNameLength)
	}
	if strings.TrimSpace(description) == "" || len(description) > maxSBTDescLength {
		return fmt.Errorf("%w: description is required and must be %d characters or less", ErrInvalidSBT, maxSBTDescLength)
	}
	if strings.TrimSpace(issuer) == "" || len(issuer) > maxSBTIssuerLength {
		return fmt.Errorf("%w: issuer is required and must be %d characters or less", ErrInvalidSBT, maxSBTIssuerLength)
	}
	if len(imageURL) > maxSBTImageURLLength {
		return fmt.Errorf("%w: image url must be %d characters or less", ErrInvalidSBT, maxSBTImageURLLength)
	}
	return nil
}

// IssueSBT attaches a badge to the recipient wallet's identity. The issuing
// wallet comes from the authenticated session, not the request body, so a
// caller cannot issue badges in someone else's name.
func (s *Service) IssueSBT(ctx context.Context, sessionWallet string, req domain.IssueSBTRequest) (*domain.SBT, error) {
	if strings.TrimSpace(req.TokenID) == "" || strings.TrimSpace(req.RecipientAddress) == "" {
		return nil, fmt.Errorf("%w: token id and recipient address are required", ErrInvalidSBT)
	}
	if err := validateSBTFields(req.Name, req.Description, req.Issuer, req.ImageURL); err != nil {
		return nil, err
	}
	if req.IssuerAddress != "" && req.IssuerAddress != sessionWallet {
		return nil, ErrNotProfileOwner
	}

	recipient, err := s.repo.FindLatestUserByWallet(ctx, strings.TrimSpace(req.RecipientAddress))
	if err != nil {
		return nil, err
	}

	sbt := &domain.SBT{
		ID:            uuid.New(),
		UserID:        recipient.ID,
		TokenID:       strings.TrimSpace(req.TokenID),
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		ImageURL:      strings.TrimSpace(req.ImageURL),
		Issuer:        strings.TrimSpace(req.Issuer),
		IssuerAddress: sessionWallet,
		IssuedAt:      time.Now().UTC(),
		Metadata:      req.Metadata,
	}
	if err := s.repo.AddSBT(ctx, sbt); err != nil {
		return nil, err
	}
	if err := s.repo.IncrementSBTsIssuedByWallet(ctx, sessionWallet); err != nil {
		log.Printf("level=warn component=sbt msg=\"issuer counter bump failed\" issuer=%s err=%v", sessionWallet, err)
	}

	if s.producer != nil {
		event := rabbitmq.SBTIssuedEvent{
			TokenID:           sbt.TokenID,
			RecipientUsername: recipient.Username,
			IssuerAddress:     sessionWallet,
			IssuedAt:          sbt.IssuedAt,
		}
		if err := s.producer.PublishSBTIssued(ctx, event); err != nil {
			log.Printf("level=warn component=sbt token_id=%s msg=\"sbt issued event publish failed\" err=%v", sbt.TokenID, err)
		}
	}

	return sbt, nil
}

// UploadImage pins raw image bytes to IPFS and returns the CID.
func (s *Service) UploadImage(ctx context.Context, filename string, content io.Reader) (*pinataclient.PinResult, error) {
	return s.pinner.PinFile(ctx, filename, content)
}

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/betterbns/domain-service/internal/domain"
	"github.com/betterbns/domain-service/internal/store"
	"github.com/google/uuid"
)

type sbtRepoStub struct {
	store.Repository

	recipient *domain.UserIdentity

	added         *domain.SBT
	addErr        error
	issuerCounted string
}

func (s *sbtRepoStub) FindLatestUserByWallet(ctx context.Context, walletAddress string) (*domain.UserIdentity, error) {
	if s.recipient == nil || s.recipient.WalletAddress != walletAddress {
		return nil, store.ErrUserNotFound
	}
	return s.recipient, nil
}

func (s *sbtRepoStub) AddSBT(ctx context.Context, sbt *domain.SBT) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added = sbt
	return nil
}

func (s *sbtRepoStub) IncrementSBTsIssuedByWallet(ctx context.Context, issuerAddress string) error {
	s.issuerCounted = issuerAddress
	return nil
}

func newSBTService(repo store.Repository) *Service {
	return NewService(
		repo,
		confirmedClaimReader(),
		nil,
		nil,
		testTreasury,
		testFee,
		3,
		0,
		"ST1CONTRACTADDRESS",
		"betterbns-registry",
		"betterbns-sbt",
		"testnet",
	)
}

func issueRequest() domain.IssueSBTRequest {
	return domain.IssueSBTRequest{
		TokenID:          "sbt-0001",
		RecipientAddress: testWallet,
		Name:             "Early Adopter",
		Description:      "Joined during the first month",
		Issuer:           "betterbns",
		ImageURL:         "https://example.com/badge.png",
	}
}

func TestIssueSBT_AttachesBadgeToRecipient(t *testing.T) {
	recipient := &domain.UserIdentity{
		ID:            uuid.New(),
		Username:      "satoshi",
		WalletAddress: testWallet,
		CreatedAt:     time.Now().UTC(),
	}
	repo := &sbtRepoStub{recipient: recipient}
	service := newSBTService(repo)

	sbt, err := service.IssueSBT(context.Background(), "ST3ISSUERWALLET", issueRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sbt.UserID != recipient.ID {
		t.Fatal("expected the badge to be bound to the recipient identity")
	}
	if sbt.IssuerAddress != "ST3ISSUERWALLET" {
		t.Fatalf("expected the session wallet as issuer, got %q", sbt.IssuerAddress)
	}
	if repo.added == nil {
		t.Fatal("expected the badge to be persisted")
	}
	if repo.issuerCounted != "ST3ISSUERWALLET" {
		t.Fatalf("expected the issuer counter bump, got %q", repo.issuerCounted)
	}
}

func TestIssueSBT_RejectsSpoofedIssuerAddress(t *testing.T) {
	repo := &sbtRepoStub{}
	service := newSBTService(repo)

	req := issueRequest()
	req.IssuerAddress = "ST3SOMEONEELSE"

	_, err := service.IssueSBT(context.Background(), "ST3ISSUERWALLET", req)
	if !errors.Is(err, ErrNotProfileOwner) {
		t.Fatalf("expected ErrNotProfileOwner, got %v", err)
	}
}

func TestIssueSBT_RecipientWithoutDomain(t *testing.T) {
	repo := &sbtRepoStub{}
	service := newSBTService(repo)

	_, err := service.IssueSBT(context.Background(), "ST3ISSUERWALLET", issueRequest())
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIssueSBT_DuplicateTokenID(t *testing.T) {
	recipient := &domain.UserIdentity{ID: uuid.New(), WalletAddress: testWallet}
	repo := &sbtRepoStub{recipient: recipient, addErr: store.ErrSBTExists}
	service := newSBTService(repo)

	_, err := service.IssueSBT(context.Background(), "ST3ISSUERWALLET", issueRequest())
	if !errors.Is(err, store.ErrSBTExists) {
		t.Fatalf("expected ErrSBTExists, got %v", err)
	}
}

func TestIssueSBT_ValidatesFieldLimits(t *testing.T) {
	repo := &sbtRepoStub{}
	service := newSBTService(repo)

	tests := []struct {
		name   string
		mutate func(*domain.IssueSBTRequest)
	}{
		{
			name:   "name over 64 characters",
			mutate: func(r *domain.IssueSBTRequest) { r.Name = longString(65) },
		},
		{
			name:   "description over 256 characters",
			mutate: func(r *domain.IssueSBTRequest) { r.Description = longString(257) },
		},
		{
			name:   "issuer over 64 characters",
			mutate: func(r *domain.IssueSBTRequest) { r.Issuer = longString(65) },
		},
		{
			name:   "image url over 256 characters",
			mutate: func(r *domain.IssueSBTRequest) { r.ImageURL = longString(257) },
		},
		{
			name:   "missing token id",
			mutate: func(r *domain.IssueSBTRequest) { r.TokenID = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := issueRequest()
			tt.mutate(&req)
			if _, err := service.IssueSBT(context.Background(), "ST3ISSUERWALLET", req); !errors.Is(err, ErrInvalidSBT) {
				t.Fatalf("expected ErrInvalidSBT, got %v", err)
			}
		})
	}
}

func longString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}

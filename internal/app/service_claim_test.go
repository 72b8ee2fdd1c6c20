package app

import (
	"context"
	"errors"
	"testing"

	"github.com/betterbns/domain-service/internal/domain"
	"github.com/betterbns/domain-service/internal/store"
)

type claimRepoStub struct {
	store.Repository

	existing map[string]bool

	created   *domain.UserIdentity
	createErr error
}

func (s *claimRepoStub) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.existing[username], nil
}

func (s *claimRepoStub) CreateUserIdentity(ctx context.Context, user *domain.UserIdentity) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = user
	return nil
}

func newClaimService(repo store.Repository, chain ChainReader) *Service {
	return NewService(
		repo,
		chain,
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

func confirmedClaimReader() *scriptedChainReader {
	return &scriptedChainReader{responses: []chainResponse{
		{record: paymentRecord("success", testWallet, stxTransfer(testWallet, testTreasury, "20000000"))},
	}}
}

func TestClaimDomain_FinalizesVerifiedClaim(t *testing.T) {
	repo := &claimRepoStub{existing: map[string]bool{}}
	service := newClaimService(repo, confirmedClaimReader())

	user, err := service.ClaimDomain(context.Background(), domain.ClaimDomainRequest{
		Username:      "Satoshi.btc",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "satoshi" {
		t.Fatalf("expected normalized username, got %q", user.Username)
	}
	if user.DomainName() != "satoshi.btc" {
		t.Fatalf("expected satoshi.btc, got %q", user.DomainName())
	}
	if repo.created == nil {
		t.Fatal("expected the identity to be persisted")
	}
	if !repo.created.DomainClaim.BlockchainConfirmed {
		t.Fatal("expected the persisted claim to be marked confirmed")
	}
	if repo.created.DomainClaim.FeeMicroSTX != testFee {
		t.Fatalf("expected fee %d on the claim, got %d", testFee, repo.created.DomainClaim.FeeMicroSTX)
	}
	if repo.created.Profile.Bio != "Welcome to satoshi.btc" {
		t.Fatalf("unexpected default bio %q", repo.created.Profile.Bio)
	}
}

func TestClaimDomain_RejectsTakenUsername(t *testing.T) {
	repo := &claimRepoStub{existing: map[string]bool{"satoshi": true}}
	chain := confirmedClaimReader()
	service := newClaimService(repo, chain)

	_, err := service.ClaimDomain(context.Background(), domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	})
	if !errors.Is(err, store.ErrDomainTaken) {
		t.Fatalf("expected ErrDomainTaken, got %v", err)
	}
	if chain.calls != 0 {
		t.Fatal("expected no polling for an already taken name")
	}
}

func TestClaimDomain_CaseFoldCollisionsAreDuplicates(t *testing.T) {
	repo := &claimRepoStub{existing: map[string]bool{"alice": true}}
	service := newClaimService(repo, confirmedClaimReader())

	for _, raw := range []string{"alice", "Alice", "ALICE"} {
		_, err := service.ClaimDomain(context.Background(), domain.ClaimDomainRequest{
			Username:      raw,
			WalletAddress: testWallet,
			TxID:          "0xabc",
		})
		if !errors.Is(err, store.ErrDomainTaken) {
			t.Fatalf("expected ErrDomainTaken for %q, got %v", raw, err)
		}
	}
}

func TestClaimDomain_InsertRaceLoserGetsDomainTaken(t *testing.T) {
	// The availability pre-check passes but another claim wins the insert.
	repo := &claimRepoStub{existing: map[string]bool{}, createErr: store.ErrDomainTaken}
	service := newClaimService(repo, confirmedClaimReader())

	_, err := service.ClaimDomain(context.Background(), domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	})
	if !errors.Is(err, store.ErrDomainTaken) {
		t.Fatalf("expected ErrDomainTaken from the insert race, got %v", err)
	}
}

func TestClaimDomain_ChainRejectionNeverFinalizes(t *testing.T) {
	repo := &claimRepoStub{existing: map[string]bool{}}
	chain := &scriptedChainReader{responses: []chainResponse{
		{record: abortedRecord()},
	}}
	service := newClaimService(repo, chain)

	_, err := service.ClaimDomain(context.Background(), domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	})
	if !errors.Is(err, ErrChainRejected) {
		t.Fatalf("expected ErrChainRejected, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("expected no identity to be persisted for a rejected payment")
	}
}

func TestClaimDomain_TimeoutNeverFinalizes(t *testing.T) {
	repo := &claimRepoStub{existing: map[string]bool{}}
	chain := &scriptedChainReader{responses: []chainResponse{
		{record: pendingRecord()},
	}}
	service := newClaimService(repo, chain)

	_, err := service.ClaimDomain(context.Background(), domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	})
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("expected no identity to be persisted on timeout")
	}
}

func TestClaimDomain_SenderMismatchNeverFinalizes(t *testing.T) {
	repo := &claimRepoStub{existing: map[string]bool{}}
	chain := &scriptedChainReader{responses: []chainResponse{
		{record: paymentRecord("success", "ST3OTHERWALLETADDRESS", stxTransfer("ST3OTHERWALLETADDRESS", testTreasury, "20000000"))},
	}}
	service := newClaimService(repo, chain)

	_, err := service.ClaimDomain(context.Background(), domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	})
	if !errors.Is(err, ErrSenderMismatch) {
		t.Fatalf("expected ErrSenderMismatch, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("expected no identity to be persisted for someone else's payment")
	}
}

func TestClaimDomain_RequiresAllFields(t *testing.T) {
	repo := &claimRepoStub{existing: map[string]bool{}}
	service := newClaimService(repo, confirmedClaimReader())

	_, err := service.ClaimDomain(context.Background(), domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: "",
		TxID:          "0xabc",
	})
	if !errors.Is(err, ErrMissingClaimFields) {
		t.Fatalf("expected ErrMissingClaimFields, got %v", err)
	}
}

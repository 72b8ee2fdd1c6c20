package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betterbns/domain-service/internal/app"
	"github.com/betterbns/domain-service/internal/domain"
	"github.com/betterbns/domain-service/internal/store"
	"github.com/betterbns/domain-service/pkg/stacksclient"
	"github.com/google/uuid"
)

const (
	testWallet   = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
	testTreasury = "ST1WAX87WDE0ZMJN8M62V23F2SFDS8Q2FPJW7EMPC"
	testFee      = int64(20000000)
)

var testSessionKey = []byte("test-signing-key")

// apiRepoStub backs the handler tests with an in-memory identity map.
type apiRepoStub struct {
	store.Repository

	users map[string]*domain.UserIdentity
}

func newAPIRepoStub() *apiRepoStub {
	return &apiRepoStub{users: map[string]*domain.UserIdentity{}}
}

func (s *apiRepoStub) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, ok := s.users[username]
	return ok, nil
}

func (s *apiRepoStub) CreateUserIdentity(ctx context.Context, user *domain.UserIdentity) error {
	if _, ok := s.users[user.Username]; ok {
		return store.ErrDomainTaken
	}
	s.users[user.Username] = user
	return nil
}

func (s *apiRepoStub) FindUserByUsername(ctx context.Context, username string) (*domain.UserIdentity, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *apiRepoStub) UpdateUserProfile(ctx context.Context, username string, update domain.UpdateProfileRequest) (*domain.UserIdentity, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if update.DisplayName != "" {
		user.DisplayName = update.DisplayName
	}
	if update.Profile != nil {
		user.Profile = *update.Profile
	}
	return user, nil
}

func (s *apiRepoStub) IncrementProfileViews(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (s *apiRepoStub) ListSBTsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.SBT, error) {
	return nil, nil
}

// fixedChainReader serves the same record for every transaction id.
type fixedChainReader struct {
	record *stacksclient.TransactionRecord
}

func (r *fixedChainReader) GetTransaction(ctx context.Context, txID string) (*stacksclient.TransactionRecord, error) {
	return r.record, nil
}

func confirmedPayment() *stacksclient.TransactionRecord {
	return &stacksclient.TransactionRecord{
		TxID:          "0xabc",
		TxStatus:      "success",
		SenderAddress: testWallet,
		Events: []stacksclient.TransactionEvent{
			{
				EventType: "stx_asset",
				Asset: stacksclient.AssetEvent{
					AssetEventType: "transfer",
					Sender:         testWallet,
					Recipient:      testTreasury,
					Amount:         "20000000",
				},
			},
		},
	}
}

func newTestRouter(repo store.Repository, chain app.ChainReader) http.Handler {
	service := app.NewService(
		repo,
		chain,
		nil,
		nil,
		testTreasury,
		testFee,
		2,
		0,
		"ST1CONTRACTADDRESS",
		"betterbns-registry",
		"betterbns-sbt",
		"testnet",
	)
	handlers := NewDomainHandlers(service, testSessionKey, 0, 0)
	return DomainRoutes(handlers, []string{"*"}, 5*time.Second)
}

func postJSON(t *testing.T, router http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestClaimDomainHandler_CreatesIdentity(t *testing.T) {
	repo := newAPIRepoStub()
	router := newTestRouter(repo, &fixedChainReader{record: confirmedPayment()})

	rec := postJSON(t, router, "/api/domains/claim", domain.ClaimDomainRequest{
		Username:      "Satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	}, "")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User claimedUserResponse `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.User.Username != "satoshi" {
		t.Fatalf("expected normalized username in response, got %q", resp.User.Username)
	}
	if resp.User.ProfileURL != "/profile/satoshi" {
		t.Fatalf("unexpected profile url %q", resp.User.ProfileURL)
	}
	if _, ok := repo.users["satoshi"]; !ok {
		t.Fatal("expected the identity to be persisted")
	}
}

func TestClaimDomainHandler_TakenNameConflicts(t *testing.T) {
	repo := newAPIRepoStub()
	repo.users["satoshi"] = &domain.UserIdentity{Username: "satoshi"}
	router := newTestRouter(repo, &fixedChainReader{record: confirmedPayment()})

	rec := postJSON(t, router, "/api/domains/claim", domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	}, "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestClaimDomainHandler_PendingPaymentTimesOut(t *testing.T) {
	repo := newAPIRepoStub()
	pending := &stacksclient.TransactionRecord{TxID: "0xabc", TxStatus: "pending"}
	router := newTestRouter(repo, &fixedChainReader{record: pending})

	rec := postJSON(t, router, "/api/domains/claim", domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	}, "")

	if rec.Code != http.StatusRequestTimeout {
		t.Fatalf("expected 408, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(repo.users) != 0 {
		t.Fatal("expected no identity to be persisted on timeout")
	}
}

func TestClaimDomainHandler_RejectedPaymentIsBadRequest(t *testing.T) {
	repo := newAPIRepoStub()
	aborted := &stacksclient.TransactionRecord{TxID: "0xabc", TxStatus: "abort_by_response", SenderAddress: testWallet}
	router := newTestRouter(repo, &fixedChainReader{record: aborted})

	rec := postJSON(t, router, "/api/domains/claim", domain.ClaimDomainRequest{
		Username:      "satoshi",
		WalletAddress: testWallet,
		TxID:          "0xabc",
	}, "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCheckDomainHandler_ReportsAvailability(t *testing.T) {
	repo := newAPIRepoStub()
	repo.users["taken"] = &domain.UserIdentity{Username: "taken"}
	router := newTestRouter(repo, &fixedChainReader{record: confirmedPayment()})

	req := httptest.NewRequest(http.MethodGet, "/api/domains/check/taken", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Available bool `json:"available"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Available {
		t.Fatal("expected taken name to be reported unavailable")
	}
}

func TestUpdateUserProfileHandler_RequiresSession(t *testing.T) {
	repo := newAPIRepoStub()
	router := newTestRouter(repo, &fixedChainReader{record: confirmedPayment()})

	raw, _ := json.Marshal(domain.UpdateProfileRequest{DisplayName: "New Name"})
	req := httptest.NewRequest(http.MethodPut, "/api/users/satoshi", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rec.Code)
	}
}

func TestUpdateUserProfileHandler_OwnerCanEdit(t *testing.T) {
	repo := newAPIRepoStub()
	repo.users["satoshi"] = &domain.UserIdentity{
		ID:            uuid.New(),
		Username:      "satoshi",
		WalletAddress: testWallet,
		DisplayName:   "satoshi",
	}
	router := newTestRouter(repo, &fixedChainReader{record: confirmedPayment()})

	token, _, err := IssueSessionToken(testSessionKey, testWallet)
	if err != nil {
		t.Fatalf("failed to issue session token: %v", err)
	}

	raw, _ := json.Marshal(domain.UpdateProfileRequest{DisplayName: "Satoshi N"})
	req := httptest.NewRequest(http.MethodPut, "/api/users/satoshi", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if repo.users["satoshi"].DisplayName != "Satoshi N" {
		t.Fatalf("expected display name update, got %q", repo.users["satoshi"].DisplayName)
	}
}

func TestUpdateUserProfileHandler_NonOwnerForbidden(t *testing.T) {
	repo := newAPIRepoStub()
	repo.users["satoshi"] = &domain.UserIdentity{
		ID:            uuid.New(),
		Username:      "satoshi",
		WalletAddress: testWallet,
	}
	router := newTestRouter(repo, &fixedChainReader{record: confirmedPayment()})

	token, _, err := IssueSessionToken(testSessionKey, "ST3SOMEONEELSE")
	if err != nil {
		t.Fatalf("failed to issue session token: %v", err)
	}

	raw, _ := json.Marshal(domain.UpdateProfileRequest{DisplayName: "Hijacked"})
	req := httptest.NewRequest(http.MethodPut, "/api/users/satoshi", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner wallet, got %d", rec.Code)
	}
}

func TestCreateSessionHandler_IssuesToken(t *testing.T) {
	repo := newAPIRepoStub()
	router := newTestRouter(repo, &fixedChainReader{record: confirmedPayment()})

	rec := postJSON(t, router, "/api/sessions", map[string]string{"walletAddress": testWallet}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a session token in the response")
	}
}

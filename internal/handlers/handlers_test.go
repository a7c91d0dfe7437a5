package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/apperrors"
	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/SscSPs/wallet_ledger/internal/dto"
	"github.com/SscSPs/wallet_ledger/internal/handlers"
	"github.com/SscSPs/wallet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock WalletService ---
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) GetHistoricalBalance(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, asOf)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) ListTransactions(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	args := m.Called(ctx, accountID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListTransactionsResponse), args.Error(1)
}

func (m *MockWalletService) CreateWallet(ctx context.Context, ownerID string) (*domain.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockWalletService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionSummary, error) {
	args := m.Called(ctx, accountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionSummary), args.Error(1)
}

func (m *MockWalletService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionSummary, error) {
	args := m.Called(ctx, accountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionSummary), args.Error(1)
}

func (m *MockWalletService) Transfer(ctx context.Context, sourceID string, destinationID string, amount decimal.Decimal) (*domain.TransactionSummary, error) {
	args := m.Called(ctx, sourceID, destinationID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionSummary), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.WalletSvcFacade = (*MockWalletService)(nil)

// --- Mock UserService ---
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

var _ portssvc.UserSvcFacade = (*MockUserService)(nil)

// --- Mock ReconciliationService ---
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context) (*domain.ReconciliationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconciliationReport), args.Error(1)
}

var _ portssvc.ReconciliationSvc = (*MockReconciliationService)(nil)

func amountOf(s string) interface{} {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

// --- Test Suite ---
type HandlersTestSuite struct {
	suite.Suite
	router       *gin.Engine
	walletSvc    *MockWalletService
	userSvc      *MockUserService
	reconcileSvc *MockReconciliationService
}

func (suite *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.router.Use(middleware.StructuredLoggingMiddleware(slog.Default()))

	suite.walletSvc = new(MockWalletService)
	suite.userSvc = new(MockUserService)
	suite.reconcileSvc = new(MockReconciliationService)

	handlers.RegisterRoutes(suite.router, &portssvc.ServiceContainer{
		Wallet:         suite.walletSvc,
		User:           suite.userSvc,
		Reconciliation: suite.reconcileSvc,
	})
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.walletSvc.AssertExpectations(suite.T())
	suite.userSvc.AssertExpectations(suite.T())
	suite.reconcileSvc.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder, v any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func sampleAccount(balance string) domain.Account {
	now := time.Now().UTC()
	return domain.Account{
		AccountID: uuid.NewString(),
		OwnerID:   uuid.NewString(),
		Balance:   decimal.RequireFromString(balance),
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- Test Cases ---

func (suite *HandlersTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("OK", w.Body.String())
}

func (suite *HandlersTestSuite) TestCreateWallet_Success() {
	acc := sampleAccount("0")
	suite.walletSvc.On("CreateWallet", mock.Anything, acc.OwnerID).Return(&acc, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet", dto.CreateWalletRequest{UserID: acc.OwnerID})

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.WalletResponse
	suite.decode(w, &resp)
	suite.Equal(acc.AccountID, resp.WalletID)
	suite.Equal(acc.OwnerID, resp.UserID)
	suite.True(resp.Balance.IsZero())
}

func (suite *HandlersTestSuite) TestCreateWallet_UnknownOwner() {
	ownerID := uuid.NewString()
	suite.walletSvc.On("CreateWallet", mock.Anything, ownerID).
		Return(nil, fmt.Errorf("%w: %s", apperrors.ErrOwnerNotFound, ownerID)).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet", dto.CreateWalletRequest{UserID: ownerID})

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestCreateWallet_InvalidBody() {
	w := suite.do(http.MethodPost, "/api/v1/wallet", map[string]string{"userID": "not-a-uuid"})

	suite.Equal(http.StatusBadRequest, w.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	suite.decode(w, &resp)
	suite.Equal("must be a UUID", resp.Fields["UserID"])
}

func (suite *HandlersTestSuite) TestDeposit_Success() {
	acc := sampleAccount("110.50")
	rec := domain.NewTransactionRecord(uuid.NewString(), acc.AccountID, domain.Deposit, decimal.RequireFromString("10.50"), "")
	rec.Timestamp = time.Now().UTC()
	suite.walletSvc.On("Deposit", mock.Anything, acc.AccountID, amountOf("10.50")).
		Return(&domain.TransactionSummary{Account: acc, Records: []domain.TransactionRecord{rec}}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet/deposit", map[string]string{"walletID": acc.AccountID, "amount": "10.50"})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.WalletTransactionResponse
	suite.decode(w, &resp)
	suite.Equal(acc.AccountID, resp.WalletID)
	suite.True(decimal.RequireFromString("110.50").Equal(resp.Balance))
	suite.Require().Len(resp.Transactions, 1)
	suite.Equal(domain.Deposit, resp.Transactions[0].Kind)
	suite.Empty(resp.TransferID)
	suite.Nil(resp.Counterpart)
}

func (suite *HandlersTestSuite) TestDeposit_InvalidAmount() {
	walletID := uuid.NewString()
	suite.walletSvc.On("Deposit", mock.Anything, walletID, amountOf("0")).
		Return(nil, apperrors.ErrInvalidAmount).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet/deposit", map[string]any{"walletID": walletID, "amount": 0})

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestWithdraw_InsufficientFunds() {
	walletID := uuid.NewString()
	suite.walletSvc.On("Withdraw", mock.Anything, walletID, amountOf("1000")).
		Return(nil, apperrors.ErrInsufficientFunds).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet/withdraw", map[string]any{"walletID": walletID, "amount": 1000})

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestTransfer_Success() {
	src, dst := sampleAccount("50"), sampleAccount("20")
	transferID := uuid.NewString()
	summary := &domain.TransactionSummary{
		Account:     src,
		Counterpart: &dst,
		TransferID:  transferID,
		Records: []domain.TransactionRecord{
			domain.NewTransactionRecord(uuid.NewString(), src.AccountID, domain.TransferDebit, decimal.NewFromInt(20), transferID),
			domain.NewTransactionRecord(uuid.NewString(), dst.AccountID, domain.TransferCredit, decimal.NewFromInt(20), transferID),
		},
	}
	suite.walletSvc.On("Transfer", mock.Anything, src.AccountID, dst.AccountID, amountOf("20")).Return(summary, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet/transfer", map[string]string{
		"fromWalletID": src.AccountID, "toWalletID": dst.AccountID, "amount": "20",
	})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.WalletTransactionResponse
	suite.decode(w, &resp)
	suite.Equal(transferID, resp.TransferID)
	suite.Require().NotNil(resp.Counterpart)
	suite.Equal(dst.AccountID, resp.Counterpart.WalletID)
	suite.Require().Len(resp.Transactions, 2)
	suite.True(decimal.NewFromInt(-20).Equal(resp.Transactions[0].Amount))
}

func (suite *HandlersTestSuite) TestTransfer_ConcurrencyExhausted() {
	src, dst := uuid.NewString(), uuid.NewString()
	suite.walletSvc.On("Transfer", mock.Anything, src, dst, amountOf("5")).
		Return(nil, fmt.Errorf("%w: account %s after 10 attempts", apperrors.ErrConcurrencyExhausted, src)).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet/transfer", map[string]string{"fromWalletID": src, "toWalletID": dst, "amount": "5"})

	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal("1", w.Header().Get("Retry-After"))
}

func (suite *HandlersTestSuite) TestTransfer_Incomplete() {
	src, dst := uuid.NewString(), uuid.NewString()
	incomplete := &apperrors.TransferIncompleteError{
		TransferID:    uuid.NewString(),
		SourceID:      src,
		DestinationID: dst,
		State:         apperrors.CompensationSucceeded,
		CreditErr:     apperrors.ErrConcurrencyExhausted,
	}
	suite.walletSvc.On("Transfer", mock.Anything, src, dst, amountOf("5")).Return(nil, incomplete).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet/transfer", map[string]string{"fromWalletID": src, "toWalletID": dst, "amount": "5"})

	suite.Equal(http.StatusInternalServerError, w.Code)
	var resp dto.TransferIncompleteResponse
	suite.decode(w, &resp)
	suite.Equal(incomplete.TransferID, resp.TransferID)
	suite.Equal(apperrors.CompensationSucceeded, resp.State)
	suite.Equal(src, resp.FromWalletID)
	suite.Equal(dst, resp.ToWalletID)
}

func (suite *HandlersTestSuite) TestTransfer_SameWallet() {
	id := uuid.NewString()
	suite.walletSvc.On("Transfer", mock.Anything, id, id, amountOf("5")).Return(nil, apperrors.ErrSameAccount).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet/transfer", map[string]string{"fromWalletID": id, "toWalletID": id, "amount": "5"})

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestGetBalance() {
	walletID := uuid.NewString()
	suite.walletSvc.On("GetBalance", mock.Anything, walletID).Return(decimal.RequireFromString("42.10"), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/wallet/"+walletID+"/balance", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	suite.decode(w, &resp)
	suite.Equal(walletID, resp.WalletID)
	suite.True(decimal.RequireFromString("42.10").Equal(resp.Balance))
	suite.Nil(resp.AsOf)
}

func (suite *HandlersTestSuite) TestGetBalance_NotFound() {
	walletID := uuid.NewString()
	suite.walletSvc.On("GetBalance", mock.Anything, walletID).Return(decimal.Zero, apperrors.ErrAccountNotFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/wallet/"+walletID+"/balance", nil)

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestGetHistoricalBalance() {
	walletID := uuid.NewString()
	asOf := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	suite.walletSvc.On("GetHistoricalBalance", mock.Anything, walletID, mock.MatchedBy(func(t time.Time) bool {
		return t.Equal(asOf)
	})).Return(decimal.NewFromInt(70), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/wallet/"+walletID+"/balance/historical?timestamp=2024-03-01T10:00:00Z", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	suite.decode(w, &resp)
	suite.True(decimal.NewFromInt(70).Equal(resp.Balance))
	suite.Require().NotNil(resp.AsOf)
	suite.True(asOf.Equal(*resp.AsOf))
}

func (suite *HandlersTestSuite) TestGetHistoricalBalance_MissingTimestamp() {
	w := suite.do(http.MethodGet, "/api/v1/wallet/"+uuid.NewString()+"/balance/historical", nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/wallet/"+uuid.NewString()+"/balance/historical?timestamp=yesterday", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestListTransactions() {
	walletID := uuid.NewString()
	next := "token"
	expected := &dto.ListTransactionsResponse{
		Transactions: []dto.TransactionResponse{{TransactionID: uuid.NewString(), WalletID: walletID, Kind: domain.Deposit, Amount: decimal.NewFromInt(5)}},
		NextToken:    &next,
	}
	suite.walletSvc.On("ListTransactions", mock.Anything, walletID, dto.ListTransactionsParams{Limit: 1, NextToken: "abc"}).
		Return(expected, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/wallet/"+walletID+"/transactions?limit=1&nextToken=abc", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListTransactionsResponse
	suite.decode(w, &resp)
	suite.Len(resp.Transactions, 1)
	suite.Require().NotNil(resp.NextToken)
	suite.Equal(next, *resp.NextToken)
}

func (suite *HandlersTestSuite) TestListTransactions_LimitOutOfRange() {
	w := suite.do(http.MethodGet, "/api/v1/wallet/"+uuid.NewString()+"/transactions?limit=500", nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.walletSvc.AssertNotCalled(suite.T(), "ListTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlersTestSuite) TestCreateUser() {
	req := dto.CreateUserRequest{Name: "Ada", Email: "ada@example.com"}
	user := &domain.User{UserID: uuid.NewString(), Name: req.Name, Email: req.Email, CreatedAt: time.Now().UTC()}
	suite.userSvc.On("CreateUser", mock.Anything, req).Return(user, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/users", req)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.UserResponse
	suite.decode(w, &resp)
	suite.Equal(user.UserID, resp.UserID)
}

func (suite *HandlersTestSuite) TestCreateUser_Duplicate() {
	req := dto.CreateUserRequest{Name: "Ada", Email: "ada@example.com"}
	suite.userSvc.On("CreateUser", mock.Anything, req).Return(nil, apperrors.ErrDuplicate).Once()

	w := suite.do(http.MethodPost, "/api/v1/users", req)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestCreateUser_InvalidEmail() {
	w := suite.do(http.MethodPost, "/api/v1/users", dto.CreateUserRequest{Name: "Ada", Email: "nope"})

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestGetUser_NotFound() {
	userID := uuid.NewString()
	suite.userSvc.On("GetUserByID", mock.Anything, userID).Return(nil, apperrors.ErrNotFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/users/"+userID, nil)

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestReconcile() {
	report := &domain.ReconciliationReport{
		AccountsChecked: 2,
		Mismatches: []domain.BalanceMismatch{{
			AccountID:     uuid.NewString(),
			Version:       4,
			StoredBalance: decimal.NewFromInt(10),
			LedgerBalance: decimal.NewFromInt(9),
		}},
	}
	suite.reconcileSvc.On("Reconcile", mock.Anything).Return(report, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/admin/reconcile", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ReconciliationResponse
	suite.decode(w, &resp)
	suite.False(resp.Consistent)
	suite.Equal(2, resp.AccountsChecked)
	suite.Len(resp.Mismatches, 1)
}

func (suite *HandlersTestSuite) TestInternalErrorHidesDetails() {
	walletID := uuid.NewString()
	suite.walletSvc.On("Deposit", mock.Anything, walletID, amountOf("1")).
		Return(nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to record transaction", fmt.Errorf("disk full"))).Once()

	w := suite.do(http.MethodPost, "/api/v1/wallet/deposit", map[string]string{"walletID": walletID, "amount": "1"})

	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.NotContains(w.Body.String(), "disk full")
}

// --- Run Test Suite ---
func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestRateLimitOnWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, err := middleware.NewRateLimiter("1-M")
	if err != nil {
		t.Fatal(err)
	}
	walletSvc := new(MockWalletService)
	walletSvc.On("GetBalance", mock.Anything, mock.Anything).Return(decimal.Zero, nil)
	walletSvc.On("Deposit", mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrInvalidAmount)

	r := gin.New()
	handlers.RegisterRoutes(r, &portssvc.ServiceContainer{
		Wallet:         walletSvc,
		User:           new(MockUserService),
		Reconciliation: new(MockReconciliationService),
	}, middleware.RateLimit(limiter))

	body := fmt.Sprintf(`{"walletID":%q,"amount":"0"}`, uuid.NewString())
	codes := make([]int, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/wallet/deposit", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}

	// Reads are not limited.
	for range 3 {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallet/"+uuid.NewString()+"/balance", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("balance read was limited: %d", w.Code)
		}
	}
}

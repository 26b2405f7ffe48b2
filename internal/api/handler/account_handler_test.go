package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/ledger-engine/internal/accounts"
	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/domain/audit"
)

// stubAccountRepo is an in-memory account.Repository for handler tests
type stubAccountRepo struct {
	accounts map[uuid.UUID]*account.Account
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[uuid.UUID]*account.Account)}
}

func (r *stubAccountRepo) Create(_ context.Context, acc *account.Account) error {
	r.accounts[acc.ID] = acc
	return nil
}

func (r *stubAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return acc, nil
}

func (r *stubAccountRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	var out []*account.Account
	for _, acc := range r.accounts {
		if acc.OwnerID == ownerID {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) Update(_ context.Context, acc *account.Account) error {
	r.accounts[acc.ID] = acc
	return nil
}

func (r *stubAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *stubAccountRepo) WithTx(_ pgx.Tx) account.Repository { return r }

type stubAuditRepo struct {
	records []*audit.Record
}

func (r *stubAuditRepo) Append(_ context.Context, record *audit.Record) error {
	r.records = append(r.records, record)
	return nil
}

func (r *stubAuditRepo) ListByAccount(_ context.Context, accountID uuid.UUID, _, _ int) ([]*audit.Record, error) {
	var out []*audit.Record
	for _, record := range r.records {
		if record.AccountID == accountID {
			out = append(out, record)
		}
	}
	return out, nil
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func newAccountHandlerFixture() (*AccountHandler, *stubAccountRepo) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := newStubAccountRepo()
	service := accounts.NewService(logger, repo, &stubAuditRepo{})
	return NewAccountHandler(logger, service), repo
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var topLevel Response
	require.NoError(t, json.Unmarshal(body, &topLevel))
	require.NotNil(t, topLevel.Data, "'data' field should not be nil")

	dataBytes, err := json.Marshal(topLevel.Data)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(dataBytes, &out))
	return out
}

func TestAccountHandler_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, _ := newAccountHandlerFixture()
		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		ownerID := uuid.New()
		reqBody := CreateAccountRequest{
			OwnerID:        ownerID.String(),
			Name:           "Main Checking",
			Type:           "CHECKING",
			Currency:       "USD",
			InitialBalance: 10000,
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		responseBody := decodeData[AccountResponse](t, rr.Body.Bytes())
		assert.Equal(t, ownerID.String(), responseBody.OwnerID)
		assert.Equal(t, "Main Checking", responseBody.Name)
		assert.Equal(t, "CHECKING", responseBody.Type)
		assert.Equal(t, int64(10000), responseBody.CurrentBalance)
		assert.Equal(t, "ACTIVE", responseBody.Status)
	})

	t.Run("CreditCardWithTerms", func(t *testing.T) {
		handler, _ := newAccountHandlerFixture()
		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		reqBody := CreateAccountRequest{
			OwnerID:  uuid.New().String(),
			Name:     "Visa",
			Type:     "CREDIT_CARD",
			Currency: "USD",
			CreditCard: &CreditCardTermsPayload{
				CreditLimit:       500000,
				BillGenerationDay: 15,
				PaymentDueDay:     5,
			},
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		responseBody := decodeData[AccountResponse](t, rr.Body.Bytes())
		require.NotNil(t, responseBody.CreditCard)
		assert.Equal(t, int64(500000), responseBody.CreditCard.CreditLimit)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		handler, _ := newAccountHandlerFixture()
		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`{"invalid`)) // Malformed JSON
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("UnknownAccountType", func(t *testing.T) {
		handler, _ := newAccountHandlerFixture()
		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		reqBody := CreateAccountRequest{
			OwnerID:  uuid.New().String(),
			Name:     "Mystery",
			Type:     "CRYPTO",
			Currency: "USD",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("CreditCardTermsRejectedOnChecking", func(t *testing.T) {
		handler, _ := newAccountHandlerFixture()
		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		reqBody := CreateAccountRequest{
			OwnerID:  uuid.New().String(),
			Name:     "Checking",
			Type:     "CHECKING",
			Currency: "USD",
			CreditCard: &CreditCardTermsPayload{
				CreditLimit:       100000,
				BillGenerationDay: 15,
				PaymentDueDay:     5,
			},
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAccountHandler_GetByID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, repo := newAccountHandlerFixture()
		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		acc, err := account.NewAccount(uuid.New(), "Savings", "SAVINGS", "EUR", 5000, nil)
		require.NoError(t, err)
		repo.accounts[acc.ID] = acc

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+acc.ID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		responseBody := decodeData[AccountResponse](t, rr.Body.Bytes())
		assert.Equal(t, acc.ID.String(), responseBody.ID)
		assert.Equal(t, "EUR", responseBody.Currency)
	})

	t.Run("NotFound", func(t *testing.T) {
		handler, _ := newAccountHandlerFixture()
		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+uuid.New().String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		handler, _ := newAccountHandlerFixture()
		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/not-a-uuid", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAccountHandler_Close(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, repo := newAccountHandlerFixture()
		router := setupTestRouter()
		router.DELETE("/accounts/:id", handler.Close)

		acc, err := account.NewAccount(uuid.New(), "Checking", "CHECKING", "USD", 0, nil)
		require.NoError(t, err)
		repo.accounts[acc.ID] = acc

		req, _ := http.NewRequest(http.MethodDelete, "/accounts/"+acc.ID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		responseBody := decodeData[AccountResponse](t, rr.Body.Bytes())
		assert.Equal(t, "CLOSED", responseBody.Status)
	})

	t.Run("Idempotent", func(t *testing.T) {
		handler, repo := newAccountHandlerFixture()
		router := setupTestRouter()
		router.DELETE("/accounts/:id", handler.Close)

		acc, err := account.NewAccount(uuid.New(), "Checking", "CHECKING", "USD", 0, nil)
		require.NoError(t, err)
		acc.Close()
		repo.accounts[acc.ID] = acc
		closedVersion := acc.Version

		req, _ := http.NewRequest(http.MethodDelete, "/accounts/"+acc.ID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, closedVersion, acc.Version, "closing twice must not bump the version")
	})
}

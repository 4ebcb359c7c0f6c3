package controllers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/api/middleware"
	"github.com/soukly/soukly-backend/internal/transactions"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	pkgerrors "github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func asUser(req *http.Request, userID uuid.UUID, role enums.ActorRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID)
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

// testTransactionsService covers the full transactions surface; unset funcs
// answer not-found so ownership checks fail closed.
type testTransactionsService struct {
	createFn          func(ctx context.Context, input transactions.CreateTransactionInput) (*models.Transaction, error)
	getFn             func(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	markShippedFn     func(ctx context.Context, input transactions.MarkShippedInput) (*models.Transaction, error)
	confirmDeliveryFn func(ctx context.Context, input transactions.ConfirmDeliveryInput) (*models.Transaction, error)
	listBuyerFn       func(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error)
	listSellerFn      func(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error)
}

func (s *testTransactionsService) Create(ctx context.Context, input transactions.CreateTransactionInput) (*models.Transaction, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *testTransactionsService) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
}

func (s *testTransactionsService) ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error) {
	if s.listBuyerFn != nil {
		return s.listBuyerFn(ctx, buyerID, limit)
	}
	return nil, nil
}

func (s *testTransactionsService) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error) {
	if s.listSellerFn != nil {
		return s.listSellerFn(ctx, sellerID, limit)
	}
	return nil, nil
}

func (s *testTransactionsService) MarkShipped(ctx context.Context, input transactions.MarkShippedInput) (*models.Transaction, error) {
	if s.markShippedFn != nil {
		return s.markShippedFn(ctx, input)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *testTransactionsService) ConfirmDelivery(ctx context.Context, input transactions.ConfirmDeliveryInput) (*models.Transaction, error) {
	if s.confirmDeliveryFn != nil {
		return s.confirmDeliveryFn(ctx, input)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *testTransactionsService) SettleTx(ctx context.Context, tx *gorm.DB, transactionID, actorID uuid.UUID, cause string) (*models.Transaction, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *testTransactionsService) RefundTx(ctx context.Context, tx *gorm.DB, transactionID, actorID uuid.UUID, cause string) (*models.Transaction, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *testTransactionsService) ListSettlementDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	return nil, nil
}

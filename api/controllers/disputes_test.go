package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/internal/disputes"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	pkgerrors "github.com/soukly/soukly-backend/pkg/errors"
)

type testDisputesService struct {
	openFn     func(ctx context.Context, input disputes.OpenDisputeInput) (*models.Dispute, error)
	resolveFn  func(ctx context.Context, input disputes.ResolveDisputeInput) (*models.Dispute, error)
	getFn      func(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	listTxnFn  func(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error)
	listOpenFn func(ctx context.Context, limit int) ([]models.Dispute, error)
}

func (s *testDisputesService) Open(ctx context.Context, input disputes.OpenDisputeInput) (*models.Dispute, error) {
	if s.openFn != nil {
		return s.openFn(ctx, input)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *testDisputesService) Resolve(ctx context.Context, input disputes.ResolveDisputeInput) (*models.Dispute, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, input)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired")
}

func (s *testDisputesService) Get(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
}

func (s *testDisputesService) ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error) {
	if s.listTxnFn != nil {
		return s.listTxnFn(ctx, transactionID)
	}
	return nil, nil
}

func (s *testDisputesService) ListOpen(ctx context.Context, limit int) ([]models.Dispute, error) {
	if s.listOpenFn != nil {
		return s.listOpenFn(ctx, limit)
	}
	return nil, nil
}

func TestDisputeOpenUsesCallerAsBuyer(t *testing.T) {
	buyerID := uuid.New()
	transactionID := uuid.New()
	svc := &testDisputesService{
		openFn: func(ctx context.Context, input disputes.OpenDisputeInput) (*models.Dispute, error) {
			if input.BuyerID != buyerID {
				t.Fatalf("unexpected buyer %s", input.BuyerID)
			}
			if input.TransactionID != transactionID {
				t.Fatalf("unexpected transaction %s", input.TransactionID)
			}
			if input.Reason != "item_not_received" {
				t.Fatalf("unexpected reason %s", input.Reason)
			}
			return &models.Dispute{ID: uuid.New(), TransactionID: transactionID, Status: enums.DisputeStatusOpen}, nil
		},
	}

	body := `{"transaction_id":"` + transactionID.String() + `","reason":"item_not_received","description":"never arrived"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/disputes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, buyerID, enums.ActorRoleBuyer)

	resp := httptest.NewRecorder()
	DisputeOpen(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDisputeOpenSettledTransactionConflicts(t *testing.T) {
	svc := &testDisputesService{
		openFn: func(ctx context.Context, input disputes.OpenDisputeInput) (*models.Dispute, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already settled")
		},
	}

	body := `{"transaction_id":"` + uuid.NewString() + `","reason":"damaged"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/disputes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, uuid.New(), enums.ActorRoleBuyer)

	resp := httptest.NewRecorder()
	DisputeOpen(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestDisputeResolveRejectsUnknownRuling(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/disputes/"+uuid.NewString()+"/resolve", strings.NewReader(`{"resolution":"split_the_difference"}`))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, uuid.New(), enums.ActorRoleAdmin)
	req = addRouteParam(req, "disputeId", uuid.NewString())

	resp := httptest.NewRecorder()
	DisputeResolve(&testDisputesService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDisputeResolveRefundsBuyer(t *testing.T) {
	adminID := uuid.New()
	disputeID := uuid.New()
	svc := &testDisputesService{
		resolveFn: func(ctx context.Context, input disputes.ResolveDisputeInput) (*models.Dispute, error) {
			if input.AdminID != adminID {
				t.Fatalf("unexpected admin %s", input.AdminID)
			}
			if input.Resolution != string(enums.DisputeResolutionRefundBuyer) {
				t.Fatalf("unexpected resolution %s", input.Resolution)
			}
			return &models.Dispute{ID: disputeID, Status: enums.DisputeStatusResolved}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/disputes/"+disputeID.String()+"/resolve", strings.NewReader(`{"resolution":"REFUND_BUYER"}`))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, adminID, enums.ActorRoleAdmin)
	req = addRouteParam(req, "disputeId", disputeID.String())

	resp := httptest.NewRecorder()
	DisputeResolve(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDisputeDetailHiddenFromOutsiders(t *testing.T) {
	transactionID := uuid.New()
	dispute := &models.Dispute{ID: uuid.New(), TransactionID: transactionID, Status: enums.DisputeStatusOpen}
	disputeSvc := &testDisputesService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
			return dispute, nil
		},
	}
	txnSvc := &testTransactionsService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
			return &models.Transaction{ID: transactionID, BuyerID: uuid.New(), SellerID: uuid.New()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/disputes/"+dispute.ID.String(), nil)
	req = asUser(req, uuid.New(), enums.ActorRoleBuyer)
	req = addRouteParam(req, "disputeId", dispute.ID.String())

	resp := httptest.NewRecorder()
	DisputeDetail(disputeSvc, txnSvc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

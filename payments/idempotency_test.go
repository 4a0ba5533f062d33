package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"heliox/models"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeIdem is an in-memory idemStore. Insert fails with a Mongo
// duplicate-key error on reused keys, like the unique index does.
type fakeIdem struct {
	recs map[string]*models.IdempotencyRecord
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{recs: map[string]*models.IdempotencyRecord{}}
}

func (s *fakeIdem) Insert(_ context.Context, rec models.IdempotencyRecord) error {
	if _, ok := s.recs[rec.Key]; ok {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	}
	s.recs[rec.Key] = &rec
	return nil
}

func (s *fakeIdem) Find(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	rec, ok := s.recs[key]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return rec, nil
}

func (s *fakeIdem) SaveResponse(_ context.Context, key string, response map[string]interface{}) error {
	if rec, ok := s.recs[key]; ok {
		rec.Response = response
	}
	return nil
}

func (s *fakeIdem) Delete(_ context.Context, key string) error {
	delete(s.recs, key)
	return nil
}

func swapIdem(t *testing.T, s idemStore) {
	t.Helper()
	old := idem
	idem = s
	t.Cleanup(func() { idem = old })
}

func doKeyedPay(t *testing.T, svc *Service, key string, amount float64) *httptest.ResponseRecorder {
	t.Helper()
	raw, _ := json.Marshal(map[string]any{"email": "a@b.com", "amount": amount})
	req := httptest.NewRequest(http.MethodPost, "/api/orders/order/order-1/pay", bytes.NewReader(raw))
	req.Header.Set("Idempotency-Key", key)
	rec := httptest.NewRecorder()
	Idempotency(svc.Pay)(rec, req, httprouter.Params{{Key: "orderId", Value: "order-1"}})
	return rec
}

func TestIdempotencyRetriesAfterGatewayOutage(t *testing.T) {
	store := newFakeIdem()
	swapIdem(t, store)

	gw := &fakeGateway{initErr: errors.New("gateway down")}
	orders := newFakeOrders(testOrder())
	svc, _ := newTestService(gw, orders)

	rec := doKeyedPay(t, svc, "key-1", 10000)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if _, ok := store.recs["key-1"]; ok {
		t.Fatal("transient failure must not pin the idempotency key")
	}

	// Gateway recovers; the client retries with the same key.
	gw.initErr = nil
	rec = doKeyedPay(t, svc, "key-1", 10000)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if orders.orders["order-1"].PaymentReference == "" {
		t.Error("retry did not stamp a reference")
	}
	if gw.initCalls != 2 {
		t.Errorf("gateway called %d times, want 2", gw.initCalls)
	}
}

func TestIdempotencyReplaysSuccessfulResponse(t *testing.T) {
	store := newFakeIdem()
	swapIdem(t, store)

	gw := &fakeGateway{}
	orders := newFakeOrders(testOrder())
	svc, _ := newTestService(gw, orders)

	rec := doKeyedPay(t, svc, "key-1", 10000)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	first := orders.orders["order-1"].PaymentReference

	rec = doKeyedPay(t, svc, "key-1", 10000)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want 200", rec.Code)
	}
	if gw.initCalls != 1 {
		t.Errorf("gateway called %d times, replay must not re-execute", gw.initCalls)
	}
	if orders.orders["order-1"].PaymentReference != first {
		t.Error("replay minted a new reference")
	}
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	swapIdem(t, newFakeIdem())

	gw := &fakeGateway{}
	orders := newFakeOrders(testOrder())
	svc, _ := newTestService(gw, orders)

	if rec := doKeyedPay(t, svc, "key-1", 10000); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec := doKeyedPay(t, svc, "key-1", 5000); rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 for a reused key with a new body", rec.Code)
	}
}

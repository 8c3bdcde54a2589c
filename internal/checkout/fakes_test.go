package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// --- Mock implementations ---

type fakeOrders struct {
	mu      sync.Mutex
	calls   int
	err     error
	entered chan struct{}
	release chan struct{}
	last    order.PlaceRequest
}

func (f *fakeOrders) Place(ctx context.Context, req order.PlaceRequest) (*order.Order, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.last = req
	err := f.err
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &order.Order{
		ID:     fmt.Sprintf("ord_%d", n),
		Totals: cart.Totals{Total: decimal.RequireFromString("306.97")},
	}, nil
}

func (f *fakeOrders) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCharges struct {
	mu        sync.Mutex
	created   []payment.ChargeRequest
	createFn  func(req payment.ChargeRequest) (*payment.Charge, error)
	status    map[string]*payment.Charge
	getCalls  int
	getErr    error
	getGate   chan struct{}
	getEnter  chan struct{}
	nextIndex int
}

func newFakeCharges() *fakeCharges {
	return &fakeCharges{status: make(map[string]*payment.Charge)}
}

func (f *fakeCharges) CreateCharge(_ context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createFn != nil {
		return f.createFn(req)
	}
	f.nextIndex++
	ch := &payment.Charge{
		ID:     fmt.Sprintf("chrg_%d", f.nextIndex),
		Status: payment.ChargePending,
	}
	switch req.Method {
	case "promptpay":
		ch.ScannableCode = "https://cdn.example.com/qr/" + ch.ID + ".svg"
	case "truemoney", "internet_banking":
		ch.AuthorizeURI = "https://pay.example.com/authorize/" + ch.ID
	}
	f.status[ch.ID] = &payment.Charge{ID: ch.ID, Status: payment.ChargePending}
	return ch, nil
}

func (f *fakeCharges) GetCharge(_ context.Context, id string) (*payment.Charge, error) {
	if f.getEnter != nil {
		f.getEnter <- struct{}{}
	}
	if f.getGate != nil {
		<-f.getGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	ch, ok := f.status[id]
	if !ok {
		return nil, errors.Errorf("charge %q not found", id)
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeCharges) settle(id string, status payment.ChargeStatus, paid bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = &payment.Charge{ID: id, Status: status, Paid: paid}
}

func (f *fakeCharges) Created() []payment.ChargeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payment.ChargeRequest(nil), f.created...)
}

func (f *fakeCharges) GetCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

type fakeTokenizer struct {
	token string
	err   error
	calls int
}

func (f *fakeTokenizer) CreateToken(context.Context, payment.CardFields) (string, error) {
	f.calls++
	return f.token, f.err
}

type memStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string][]byte)}
}

func (m *memStore) Save(_ context.Context, s Session) error {
	data, err := MarshalSession(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.OrderID] = data
	return nil
}

func (m *memStore) Load(_ context.Context, orderID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[orderID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return UnmarshalSession(data)
}

func (m *memStore) Delete(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, orderID)
	return nil
}

func (m *memStore) Has(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[orderID]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type staticCart struct {
	snapshot *cart.Snapshot
	err      error
}

func (c staticCart) LoadCart(context.Context) (*cart.Snapshot, error) {
	return c.snapshot, c.err
}

// --- Helpers ---

var testLinks = Links{
	Confirmation: "/orders/{order_id}",
	Return:       "https://shop.example.com/checkout/return/{order_id}",
}

func validAddress() address.ShippingAddress {
	return address.ShippingAddress{
		RecipientName: "Somchai Jaidee",
		Phone:         "0812345678",
		Email:         "somchai@example.com",
		Line1:         "99 Rama IV Rd",
		City:          "Bangkok",
		Province:      "Bangkok",
		PostalCode:    "10110",
		Country:       "TH",
	}
}

func testSnapshot() cart.Snapshot {
	return cart.Snapshot{
		Items: []cart.Item{
			{ProductID: "p1", ShopID: "s1", UnitPrice: decimal.RequireFromString("124.75"), Quantity: 2},
		},
		ShippingFee: decimal.RequireFromString("40"),
		Currency:    "THB",
	}
}

// sessionAt returns a session with a valid address on step with rail r.
func sessionAt(step Step, r payment.Rail) Session {
	s := NewSession("sess_1", testSnapshot(), time.Unix(1700000000, 0))
	s = s.WithAddress(validAddress(), address.ShippingAddress{})
	s.Step = step
	if r != "" {
		s = s.SelectRail(r)
	}
	return s
}

type harness struct {
	orders  *fakeOrders
	charges *fakeCharges
	tokens  *fakeTokenizer
	store   *memStore
	events  *recordingPublisher
	engine  *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		orders:  &fakeOrders{},
		charges: newFakeCharges(),
		tokens:  &fakeTokenizer{token: "tokn_test_1"},
		store:   newMemStore(),
		events:  &recordingPublisher{},
	}
	engine, err := NewEngine(EngineOptions{
		Drivers: NewDrivers(Deps{
			Orders:    h.orders,
			Charges:   h.charges,
			Tokenizer: h.tokens,
			Links:     testLinks,
			Currency:  "THB",
		}),
		Charges:  h.charges,
		Links:    testLinks,
		Currency: "THB",
		Store:    h.store,
		Events:   h.events,
		Config:   EngineConfig{CountdownSeconds: 5, GraceChecks: 1},
	})
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) deps() Deps {
	return Deps{
		Orders:    h.orders,
		Charges:   h.charges,
		Tokenizer: h.tokens,
		Links:     testLinks,
		Currency:  "THB",
	}
}

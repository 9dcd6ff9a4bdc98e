package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adoniasgoesw/filazero/internal/complements"
	"github.com/adoniasgoesw/filazero/pkg/enums"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

var (
	pizzaID   = uuid.MustParse("5f3a1c52-7a52-4a0b-8f1e-000000000001")
	sodaID    = uuid.MustParse("5f3a1c52-7a52-4a0b-8f1e-000000000002")
	platterID = uuid.MustParse("5f3a1c52-7a52-4a0b-8f1e-000000000003")
	crustCat  = uuid.MustParse("5f3a1c52-7a52-4a0b-8f1e-0000000000c1")
	thinCrust = uuid.MustParse("5f3a1c52-7a52-4a0b-8f1e-0000000000d1")
	cashID    = uuid.MustParse("5f3a1c52-7a52-4a0b-8f1e-0000000000a1")
	pixID     = uuid.MustParse("5f3a1c52-7a52-4a0b-8f1e-0000000000a2")
	compID    = uuid.MustParse("5f3a1c52-7a52-4a0b-8f1e-0000000000a9")
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type fakeOrders struct {
	mu sync.Mutex

	orderID   uuid.UUID
	exists    bool
	finalized bool
	name      string
	items     []types.OrderItem
	discount  decimal.Decimal
	surcharge decimal.Decimal
	clientID  *uuid.UUID
	rows      []types.PaymentRow
	recorded  []types.RecordPaymentRequest

	calls []string
	fail  map[string]error
	// gate, when set for an operation, blocks it until a value is received.
	gate     map[string]chan struct{}
	inFlight int
	maxInFl  int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orderID:   uuid.New(),
		exists:    true,
		discount:  decimal.Zero,
		surcharge: decimal.Zero,
		fail:      map[string]error{},
		gate:      map[string]chan struct{}{},
	}
}

func (f *fakeOrders) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	err := f.fail[op]
	gate := f.gate[op]
	exists := f.exists
	f.inFlight++
	if f.inFlight > f.maxInFl {
		f.maxInFl = f.inFlight
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.leave()
			return ctx.Err()
		}
	}
	if err != nil {
		f.leave()
		return err
	}
	if !exists && op != "EnsureOrder" {
		f.leave()
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func (f *fakeOrders) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeOrders) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeOrders) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeOrders) EnsureOrder(ctx context.Context, slot string) (*types.OrderHandle, error) {
	if err := f.enter(ctx, "EnsureOrder"); err != nil {
		return nil, err
	}
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists = true
	return &types.OrderHandle{ID: f.orderID, Slot: slot, Status: enums.OrderStatusOpen}, nil
}

func (f *fakeOrders) GetOrder(ctx context.Context, slot string) (*types.OrderSnapshot, error) {
	if err := f.enter(ctx, "GetOrder"); err != nil {
		return nil, err
	}
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.OrderSnapshot{
		ID:          f.orderID,
		Slot:        slot,
		Status:      enums.OrderStatusOpen,
		DisplayName: f.name,
		ClientID:    f.clientID,
		Items:       types.CloneItems(f.items),
		Discount:    f.discount,
		Surcharge:   f.surcharge,
	}, nil
}

func (f *fakeOrders) ReplaceItems(ctx context.Context, _ string, req types.ReplaceItemsRequest) error {
	if err := f.enter(ctx, "ReplaceItems"); err != nil {
		return err
	}
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = types.CloneItems(req.Items)
	f.name = req.DisplayName
	return nil
}

func (f *fakeOrders) SetDiscount(ctx context.Context, _ string, amount decimal.Decimal) error {
	if err := f.enter(ctx, "SetDiscount"); err != nil {
		return err
	}
	defer f.leave()
	f.mu.Lock()
	f.discount = amount
	f.mu.Unlock()
	return nil
}

func (f *fakeOrders) SetSurcharge(ctx context.Context, _ string, amount decimal.Decimal) error {
	if err := f.enter(ctx, "SetSurcharge"); err != nil {
		return err
	}
	defer f.leave()
	f.mu.Lock()
	f.surcharge = amount
	f.mu.Unlock()
	return nil
}

func (f *fakeOrders) SetClient(ctx context.Context, _ string, clientID *uuid.UUID) error {
	if err := f.enter(ctx, "SetClient"); err != nil {
		return err
	}
	defer f.leave()
	f.mu.Lock()
	f.clientID = clientID
	f.mu.Unlock()
	return nil
}

func (f *fakeOrders) ListPayments(ctx context.Context, _ uuid.UUID) ([]types.PaymentRow, error) {
	if err := f.enter(ctx, "ListPayments"); err != nil {
		return nil, err
	}
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.PaymentRow(nil), f.rows...), nil
}

func (f *fakeOrders) CreateCompositePaymentMethod(ctx context.Context, _ []uuid.UUID) (uuid.UUID, error) {
	if err := f.enter(ctx, "CreateCompositePaymentMethod"); err != nil {
		return uuid.Nil, err
	}
	defer f.leave()
	return compID, nil
}

func (f *fakeOrders) RecordPayment(ctx context.Context, _ string, req types.RecordPaymentRequest) ([]types.PaymentRow, error) {
	if err := f.enter(ctx, "RecordPayment"); err != nil {
		return nil, err
	}
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, req)
	for _, alloc := range req.Allocations {
		found := false
		for i := range f.rows {
			if f.rows[i].ClientRef == alloc.ClientRef {
				f.rows[i].Amount = alloc.Amount
				found = true
			}
		}
		if !found {
			f.rows = append(f.rows, types.PaymentRow{
				ID:        uuid.New(),
				OrderID:   f.orderID,
				MethodID:  alloc.MethodID,
				Amount:    alloc.Amount,
				ClientRef: alloc.ClientRef,
			})
		}
	}
	return append([]types.PaymentRow(nil), f.rows...), nil
}

func (f *fakeOrders) UpdatePayment(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal) error {
	if err := f.enter(ctx, "UpdatePayment"); err != nil {
		return err
	}
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == paymentID {
			f.rows[i].Amount = amount
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (f *fakeOrders) DeletePayment(ctx context.Context, _ uuid.UUID, methodID uuid.UUID) error {
	if err := f.enter(ctx, "DeletePayment"); err != nil {
		return err
	}
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.MethodID != methodID {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeOrders) FinalizeOrder(ctx context.Context, _ string) error {
	if err := f.enter(ctx, "FinalizeOrder"); err != nil {
		return err
	}
	defer f.leave()
	f.mu.Lock()
	f.finalized = true
	f.mu.Unlock()
	return nil
}

func (f *fakeOrders) DeleteOrder(ctx context.Context, _ string) error {
	if err := f.enter(ctx, "DeleteOrder"); err != nil {
		return err
	}
	defer f.leave()
	f.mu.Lock()
	f.exists = false
	f.items = nil
	f.rows = nil
	f.mu.Unlock()
	return nil
}

type fakeCatalog struct {
	products   map[uuid.UUID]types.Product
	categories map[uuid.UUID][]types.ComplementCategory
	methods    []types.PaymentMethod
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[uuid.UUID]types.Product{
			pizzaID:   {ID: pizzaID, Name: "Pizza", UnitPrice: dec("32.90"), Active: true},
			sodaID:    {ID: sodaID, Name: "Soda", UnitPrice: dec("6.00"), Active: true},
			platterID: {ID: platterID, Name: "Platter", UnitPrice: dec("100.00"), Active: true},
		},
		categories: map[uuid.UUID][]types.ComplementCategory{
			pizzaID: {{
				ID:            crustCat,
				ProductID:     pizzaID,
				Name:          "Crust",
				Required:      true,
				MaxSelectable: 1,
				Items: []types.ComplementItem{
					{ID: thinCrust, CategoryID: crustCat, Name: "Thin", UnitPrice: dec("5.00"), Active: true},
				},
			}},
		},
		methods: []types.PaymentMethod{
			{ID: cashID, Name: "Cash", Active: true},
			{ID: pixID, Name: "Pix", Active: true},
		},
	}
}

func (c *fakeCatalog) Product(_ context.Context, id uuid.UUID) (*types.Product, error) {
	product, ok := c.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &product, nil
}

func (c *fakeCatalog) ComplementCategories(_ context.Context, productID uuid.UUID) ([]types.ComplementCategory, error) {
	return c.categories[productID], nil
}

func (c *fakeCatalog) PaymentMethods(context.Context) ([]types.PaymentMethod, error) {
	return c.methods, nil
}

type stubMetrics struct {
	mu       sync.Mutex
	success  map[string]int
	failures map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{success: map[string]int{}, failures: map[string]int{}}
}

func (m *stubMetrics) ObserveDuration(string, time.Duration) {}

func (m *stubMetrics) IncSuccess(step string) {
	m.mu.Lock()
	m.success[step]++
	m.mu.Unlock()
}

func (m *stubMetrics) IncFailure(step string) {
	m.mu.Lock()
	m.failures[step]++
	m.mu.Unlock()
}

type stubPrinter struct {
	receipts []Receipt
	err      error
}

func (p *stubPrinter) Print(_ context.Context, receipt Receipt) error {
	p.receipts = append(p.receipts, receipt)
	return p.err
}

var errBackendDown = errors.New("connection refused")

type harness struct {
	orders   *fakeOrders
	catalog  *fakeCatalog
	metrics  *stubMetrics
	printer  *stubPrinter
	ctrl     *Controller
	session  *Session
	slotCode string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		orders:  newFakeOrders(),
		catalog: newFakeCatalog(),
		metrics: newStubMetrics(),
		printer: &stubPrinter{},
	}
	ctrl, err := NewController(Params{
		Orders:   h.orders,
		Catalog:  h.catalog,
		Logger:   logger.Nop(),
		Metrics:  h.metrics,
		Printer:  h.printer,
		Timeout:  2 * time.Second,
		LockWait: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	slot, err := types.ParseSlot("table-05")
	if err != nil {
		t.Fatalf("parse slot: %v", err)
	}
	h.slotCode = slot.Code()
	session, res := ctrl.Open(context.Background(), slot)
	if !res.OK {
		t.Fatalf("open: %+v", res)
	}
	h.session = session
	return h
}

func (h *harness) addPizza(t *testing.T, withCrust bool) {
	t.Helper()
	selections := map[uuid.UUID]complements.Selection{}
	if withCrust {
		selections[crustCat] = complements.Selection{thinCrust: 1}
	}
	res := h.session.AddProduct(context.Background(), pizzaID, selections, 1)
	if !res.OK {
		t.Fatalf("add pizza: %+v", res)
	}
}

func (h *harness) addSoda(t *testing.T, qty int) {
	t.Helper()
	res := h.session.AddProduct(context.Background(), sodaID, nil, qty)
	if !res.OK {
		t.Fatalf("add soda: %+v", res)
	}
}

func (h *harness) pay(t *testing.T, method uuid.UUID, amount string) uuid.UUID {
	t.Helper()
	alloc, res := h.session.AddAllocation(context.Background(), method)
	if !res.OK {
		t.Fatalf("add allocation: %+v", res)
	}
	if res := h.session.UpdateAllocation(context.Background(), alloc.LocalID, dec(amount)); !res.OK {
		t.Fatalf("update allocation: %+v", res)
	}
	return alloc.LocalID
}

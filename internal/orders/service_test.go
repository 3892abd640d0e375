package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/apperr"
	"github.com/ecomstack/storefront/internal/inventory"
	"github.com/ecomstack/storefront/internal/stores/memstore"
	"github.com/ecomstack/storefront/pkg/models"
)

// memDirectory adapts the memstore account table to the Directory contract.
type memDirectory struct {
	store *memstore.Store
}

func (d memDirectory) Account(ctx context.Context, id string) (*models.Account, error) {
	return d.store.GetAccount(ctx, id)
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	ledger *inventory.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	store := memstore.New()
	ledger := inventory.NewLedger(store, logger)
	svc := NewService(store, ledger, store, memDirectory{store}, store, logger)

	seedAccount(t, store, "client-1", models.RoleClient, "Ada", "ada@example.com")
	seedAccount(t, store, "client-2", models.RoleClient, "Grace", "grace@example.com")
	seedAccount(t, store, "admin-1", models.RoleAdmin, "Boss", "boss@example.com")

	return &fixture{svc: svc, store: store, ledger: ledger}
}

func seedAccount(t *testing.T, store *memstore.Store, id, role, name, email string) {
	t.Helper()
	err := store.CreateAccount(context.Background(), &models.Account{
		ID:       id,
		Role:     role,
		Username: name,
		Email:    email,
		Verified: true,
	})
	if err != nil {
		t.Fatalf("failed to seed account %s: %v", id, err)
	}
}

func (f *fixture) seedProduct(t *testing.T, name string, price float64, quantity int) string {
	t.Helper()
	p, err := f.ledger.AddProduct(context.Background(), name, price, quantity, "admin-1")
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return p.ID
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.ledger.Product(context.Background(), productID)
	if err != nil {
		t.Fatalf("failed to read product: %v", err)
	}
	return p.Quantity
}

func TestPlaceReservesStockAndSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)

	order, err := f.svc.Place(ctx, "client-1", productID, 4)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	if order.Status != models.OrderStatusPending {
		t.Errorf("expected pending status, got %s", order.Status)
	}
	if order.TotalAmount != 22.0 {
		t.Errorf("expected total 22.0, got %f", order.TotalAmount)
	}
	if order.ClientName != "Ada" || order.ProductName != "widget" {
		t.Errorf("order missing snapshots: %+v", order)
	}
	if got := f.stock(t, productID); got != 6 {
		t.Errorf("expected stock 6 after placement, got %d", got)
	}
}

func TestTotalSurvivesLaterPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)

	order, err := f.svc.Place(ctx, "client-1", productID, 2)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	newPrice := 99.99
	if _, err := f.ledger.UpdateProduct(ctx, productID, models.ProductPatch{Price: &newPrice}); err != nil {
		t.Fatalf("price update failed: %v", err)
	}

	stored, err := f.svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.TotalAmount != 11.0 || stored.UnitPrice != 5.50 {
		t.Errorf("total must be fixed at placement: total=%f unit=%f", stored.TotalAmount, stored.UnitPrice)
	}
}

func TestPlaceInsufficientStock(t *testing.T) {
	f := newFixture(t)
	productID := f.seedProduct(t, "widget", 5.50, 3)

	_, err := f.svc.Place(context.Background(), "client-1", productID, 4)
	if !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}
	if got := f.stock(t, productID); got != 3 {
		t.Errorf("failed placement must not consume stock, got %d", got)
	}
}

func TestPlaceRequiresClientRole(t *testing.T) {
	f := newFixture(t)
	productID := f.seedProduct(t, "widget", 5.50, 3)

	_, err := f.svc.Place(context.Background(), "admin-1", productID, 1)
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for admin placement, got %v", err)
	}
}

func TestConcurrentPlaceLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 1)

	// Two clients race for the last unit: exactly one order may exist.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, clientID := range []string{"client-1", "client-2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.Place(ctx, id, productID, 1)
			results <- err
		}(clientID)
	}
	wg.Wait()
	close(results)

	var successes, stockFailures int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperr.Is(err, apperr.KindInsufficientStock):
			stockFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 || stockFailures != 1 {
		t.Fatalf("expected one winner for the last unit, got %d successes and %d stock failures", successes, stockFailures)
	}

	orders, _ := f.svc.ListAll(ctx)
	if len(orders) != 1 {
		t.Errorf("expected exactly one order, got %d", len(orders))
	}
	if got := f.stock(t, productID); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
}

func TestAcceptRecordsDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)

	placed, err := f.svc.Place(ctx, "client-1", productID, 2)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	accepted, err := f.svc.Accept(ctx, placed.ID, "admin-1")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != models.OrderStatusAccepted {
		t.Errorf("expected accepted, got %s", accepted.Status)
	}
	if accepted.DispatchedAt == nil || accepted.DispatchedBy != "Boss" {
		t.Errorf("dispatch fields not recorded: at=%v by=%q", accepted.DispatchedAt, accepted.DispatchedBy)
	}
	// Stock was consumed at placement; accepting must not touch it.
	if got := f.stock(t, productID); got != 8 {
		t.Errorf("accept changed stock: %d", got)
	}

	// A repeat accept loses, and the failed attempt must not disturb the
	// recorded dispatch fields.
	if _, err := f.svc.Accept(ctx, placed.ID, "admin-1"); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState on repeat accept, got %v", err)
	}
	stored, _ := f.svc.Get(ctx, placed.ID)
	if stored.DispatchedBy != "Boss" || stored.DispatchedAt == nil || !stored.DispatchedAt.Equal(*accepted.DispatchedAt) {
		t.Errorf("failed accept altered dispatch fields: %+v", stored)
	}
}

func TestAcceptRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)
	placed, _ := f.svc.Place(ctx, "client-1", productID, 1)

	_, err := f.svc.Accept(ctx, placed.ID, "client-2")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)
	placed, _ := f.svc.Place(ctx, "client-1", productID, 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, placed.ID, "admin-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, invalid int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperr.Is(err, apperr.KindInvalidState):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || invalid != 1 {
		t.Fatalf("expected exactly one accept to win, got %d successes and %d invalid-state errors", successes, invalid)
	}
}

func TestRejectRestoresReservedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)

	placed, _ := f.svc.Place(ctx, "client-1", productID, 4)
	if got := f.stock(t, productID); got != 6 {
		t.Fatalf("expected stock 6 after placement, got %d", got)
	}

	rejected, err := f.svc.Reject(ctx, placed.ID, "admin-1")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != models.OrderStatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if got := f.stock(t, productID); got != 10 {
		t.Errorf("reject must restore exactly the reserved quantity, got %d", got)
	}

	// The order is kept with its terminal status, not deleted.
	stored, err := f.svc.Get(ctx, placed.ID)
	if err != nil {
		t.Fatalf("rejected order should still be readable: %v", err)
	}
	if stored.Status != models.OrderStatusRejected {
		t.Errorf("stored status %s", stored.Status)
	}

	// A second reject must not double-restore stock.
	if _, err := f.svc.Reject(ctx, placed.ID, "admin-1"); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState on repeat reject, got %v", err)
	}
	if got := f.stock(t, productID); got != 10 {
		t.Errorf("repeat reject changed stock: %d", got)
	}
}

func TestCancelByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)
	placed, _ := f.svc.Place(ctx, "client-1", productID, 3)

	cancelled, err := f.svc.Cancel(ctx, placed.ID, "client-1")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != models.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if got := f.stock(t, productID); got != 10 {
		t.Errorf("cancel must restore stock, got %d", got)
	}
}

func TestCancelRejectsOtherClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)
	placed, _ := f.svc.Place(ctx, "client-1", productID, 1)

	_, err := f.svc.Cancel(ctx, placed.ID, "client-2")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestCancelAfterAcceptFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)
	placed, _ := f.svc.Place(ctx, "client-1", productID, 1)
	if _, err := f.svc.Accept(ctx, placed.ID, "admin-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err := f.svc.Cancel(ctx, placed.ID, "client-1")
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState cancelling an accepted order, got %v", err)
	}
	if got := f.stock(t, productID); got != 9 {
		t.Errorf("failed cancel must not restore stock, got %d", got)
	}
}

func TestConfirmReceived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)
	placed, _ := f.svc.Place(ctx, "client-1", productID, 1)

	// Confirmation requires an accepted order.
	if _, err := f.svc.ConfirmReceived(ctx, placed.ID, "client-1"); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState confirming a pending order, got %v", err)
	}

	if _, err := f.svc.Accept(ctx, placed.ID, "admin-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	confirmed, err := f.svc.ConfirmReceived(ctx, placed.ID, "client-1")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if !confirmed.Received {
		t.Errorf("received flag not set")
	}

	// Confirming again is a no-op success.
	again, err := f.svc.ConfirmReceived(ctx, placed.ID, "client-1")
	if err != nil {
		t.Fatalf("repeat confirm should succeed: %v", err)
	}
	if !again.Received {
		t.Errorf("received flag lost on repeat confirm")
	}

	// Only the owner may confirm.
	if _, err := f.svc.ConfirmReceived(ctx, placed.ID, "client-2"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

// failingOrderStore makes CreateOrder fail so the compensating stock
// release path can be exercised.
type failingOrderStore struct {
	*memstore.Store
}

func (s failingOrderStore) CreateOrder(context.Context, *models.Order) error {
	return apperr.New(apperr.KindInternal, "simulated write failure")
}

func TestPlaceReleasesReservationOnCreateFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := memstore.New()
	ledger := inventory.NewLedger(store, logger)
	svc := NewService(failingOrderStore{store}, ledger, store, memDirectory{store}, store, logger)

	seedAccount(t, store, "client-1", models.RoleClient, "Ada", "ada@example.com")
	p, err := ledger.AddProduct(context.Background(), "widget", 5.50, 10, "admin-1")
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	_, err = svc.Place(context.Background(), "client-1", p.ID, 4)
	if err == nil {
		t.Fatal("expected place to fail")
	}

	got, _ := ledger.Product(context.Background(), p.ID)
	if got.Quantity != 10 {
		t.Errorf("reservation must be released after a failed create, got stock %d", got.Quantity)
	}
}

func TestPlaceFromCartClearsEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widgetID := f.seedProduct(t, "widget", 5.50, 10)
	gadgetID := f.seedProduct(t, "gadget", 2.00, 10)

	for _, productID := range []string{widgetID, gadgetID} {
		err := f.store.AddCartItem(ctx, &models.CartItem{
			ClientID:  "client-1",
			ProductID: productID,
			Quantity:  2,
		})
		if err != nil {
			t.Fatalf("failed to seed cart: %v", err)
		}
	}

	placed, err := f.svc.PlaceFromCart(ctx, "client-1")
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(placed) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(placed))
	}

	items, _ := f.store.ListCartItems(ctx, "client-1")
	if len(items) != 0 {
		t.Errorf("cart should be empty after checkout, %d entries left", len(items))
	}
}

func TestPlaceFromCartEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceFromCart(context.Background(), "client-1")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation for empty cart, got %v", err)
	}
}

func TestPlaceFromCartKeepsEntryOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 1)

	err := f.store.AddCartItem(ctx, &models.CartItem{
		ClientID:  "client-1",
		ProductID: productID,
		Quantity:  5, // more than stock
	})
	if err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}

	placed, err := f.svc.PlaceFromCart(ctx, "client-1")
	if !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}
	if len(placed) != 0 {
		t.Errorf("no orders should be placed, got %d", len(placed))
	}

	items, _ := f.store.ListCartItems(ctx, "client-1")
	if len(items) != 1 {
		t.Errorf("failed entry must stay in cart, got %d entries", len(items))
	}
}

func TestDirectPlaceLeavesCartAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)

	err := f.store.AddCartItem(ctx, &models.CartItem{
		ClientID:  "client-1",
		ProductID: productID,
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}

	if _, err := f.svc.Place(ctx, "client-1", productID, 1); err != nil {
		t.Fatalf("place failed: %v", err)
	}

	items, _ := f.store.ListCartItems(ctx, "client-1")
	if len(items) != 1 {
		t.Errorf("direct placement must not touch the cart, got %d entries", len(items))
	}
}

func TestListForClientScopesToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)

	if _, err := f.svc.Place(ctx, "client-1", productID, 1); err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if _, err := f.svc.Place(ctx, "client-2", productID, 1); err != nil {
		t.Fatalf("place failed: %v", err)
	}

	mine, err := f.svc.ListForClient(ctx, "client-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ClientID != "client-1" {
		t.Errorf("expected only client-1 orders, got %+v", mine)
	}

	all, _ := f.svc.ListAll(ctx)
	if len(all) != 2 {
		t.Errorf("expected 2 orders in admin view, got %d", len(all))
	}
}

func TestRejectedOrderVisibleInClientHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.seedProduct(t, "widget", 5.50, 10)
	placed, _ := f.svc.Place(ctx, "client-1", productID, 1)

	if _, err := f.svc.Reject(ctx, placed.ID, "admin-1"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	history, _ := f.svc.ListForClient(ctx, "client-1")
	if len(history) != 1 || history[0].Status != models.OrderStatusRejected {
		t.Errorf("terminal orders must stay in history: %+v", history)
	}
}

// notifierSpy records which transition notices fired.
type notifierSpy struct {
	mu     sync.Mutex
	placed int
}

func (n *notifierSpy) OrderPlaced(*models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed++
}
func (n *notifierSpy) OrderAccepted(*models.Order)  {}
func (n *notifierSpy) OrderRejected(*models.Order)  {}
func (n *notifierSpy) OrderCancelled(*models.Order) {}

func TestPlaceNotifies(t *testing.T) {
	f := newFixture(t)
	spy := &notifierSpy{}
	f.svc.SetNotifier(spy)

	productID := f.seedProduct(t, "widget", 5.50, 10)
	if _, err := f.svc.Place(context.Background(), "client-1", productID, 1); err != nil {
		t.Fatalf("place failed: %v", err)
	}

	spy.mu.Lock()
	defer spy.mu.Unlock()
	if spy.placed != 1 {
		t.Errorf("expected one placed notice, got %d", spy.placed)
	}
}

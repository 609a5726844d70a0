package app

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SaugatGautam100/plexify/internal/clock"
	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/SaugatGautam100/plexify/internal/pricing"
	"github.com/shopspring/decimal"
)

var (
	testBuyer  = domain.Actor{ID: "buyer-1", Email: "ann@example.com", Name: "Ann", Role: domain.RoleBuyer}
	testSeller = domain.Actor{ID: "s1", Name: "Seller s1", Role: domain.RoleSeller}
	testAddr   = domain.Address{Name: "Ann", Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"}
)

func TestOrderService_PlaceOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	makeSvc := func(products ...domain.Product) (*OrderService, *fakeOrderRepo, *fakeCatalog, *recordingNotifier) {
		repo := newFakeOrderRepo()
		catalog := newFakeCatalog(products...)
		notifier := &recordingNotifier{}
		svc := NewOrderService(repo, catalog, clock.NewManual(now),
			WithNotifier(notifier),
			WithLogger(discardLogger()),
		)
		return svc, repo, catalog, notifier
	}

	t.Run("free shipping order", func(t *testing.T) {
		svc, repo, catalog, notifier := makeSvc(product("P1", "30.00", 5, "s1"))

		res, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "P1", Quantity: 2}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Created {
			t.Fatalf("expected Created=true")
		}

		o := res.Order
		checkMoney(t, "subtotal", o.Subtotal, "60.00")
		checkMoney(t, "shipping", o.ShippingFee, "0.00")
		checkMoney(t, "tax", o.Tax, "4.80")
		checkMoney(t, "total", o.Total, "64.80")

		if o.Status != domain.OrderStatusConfirmed || o.PaymentStatus != domain.PaymentStatusPaid {
			t.Fatalf("unexpected status %s/%s", o.Status, o.PaymentStatus)
		}
		if o.ID == "" || !strings.HasPrefix(o.OrderNumber, "ORD-20250102100000-") {
			t.Fatalf("unexpected identifiers %q %q", o.ID, o.OrderNumber)
		}
		if o.Buyer != (domain.Buyer{ID: "buyer-1", Email: "ann@example.com", Name: "Ann"}) {
			t.Fatalf("unexpected buyer snapshot %+v", o.Buyer)
		}
		if o.ShippingAddress != testAddr || !o.CreatedAt.Equal(now) {
			t.Fatalf("unexpected address or createdAt: %+v %v", o.ShippingAddress, o.CreatedAt)
		}
		if got := catalog.stock("P1"); got != 3 {
			t.Fatalf("expected stock 3, got %d", got)
		}
		if repo.count() != 1 {
			t.Fatalf("expected order persisted")
		}
		if len(notifier.placed) != 1 || notifier.placed[0] != o.ID {
			t.Fatalf("expected placed notification, got %v", notifier.placed)
		}
	})

	t.Run("flat shipping order", func(t *testing.T) {
		svc, _, catalog, _ := makeSvc(product("P2", "20.00", 10, "s1"))

		res, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "P2", Quantity: 1}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCashOnDelivery,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		checkMoney(t, "subtotal", res.Order.Subtotal, "20.00")
		checkMoney(t, "shipping", res.Order.ShippingFee, "10.00")
		checkMoney(t, "tax", res.Order.Tax, "1.60")
		checkMoney(t, "total", res.Order.Total, "31.60")
		if got := catalog.stock("P2"); got != 9 {
			t.Fatalf("expected stock 9, got %d", got)
		}
	})

	t.Run("insufficient stock creates nothing", func(t *testing.T) {
		svc, repo, catalog, notifier := makeSvc(product("P3", "5.00", 3, "s1"))

		_, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "P3", Quantity: 10}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
		})
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if got := catalog.stock("P3"); got != 3 {
			t.Fatalf("expected stock 3, got %d", got)
		}
		if repo.count() != 0 || len(notifier.placed) != 0 {
			t.Fatalf("expected no order and no notification")
		}
	})

	t.Run("wrapping merged quantities creates nothing", func(t *testing.T) {
		svc, repo, catalog, _ := makeSvc(product("P1", "10.00", 5, "s1"))

		_, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items: []ItemRequest{
				{ProductID: "P1", Quantity: math.MaxInt},
				{ProductID: "P1", Quantity: math.MaxInt},
				{ProductID: "P1", Quantity: 3},
			},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
		})
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
		if got := catalog.stock("P1"); got != 5 {
			t.Fatalf("expected stock 5, got %d", got)
		}
		if repo.count() != 0 {
			t.Fatalf("expected no order")
		}
	})

	t.Run("order keeps prices after catalog changes", func(t *testing.T) {
		svc, _, catalog, _ := makeSvc(product("P4", "12.00", 10, "s1"))

		res, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "P4", Quantity: 1}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodPayPal,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		p := catalog.products["P4"]
		p.Price = decimal.RequireFromString("99.00")
		p.Name = "Renamed"
		catalog.products["P4"] = p

		stored, err := svc.GetOrder(context.Background(), testBuyer, res.Order.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if stored.Items[0].UnitPrice.StringFixed(2) != "12.00" || stored.Items[0].ProductName != "Product P4" {
			t.Fatalf("expected snapshot to be unchanged, got %+v", stored.Items[0])
		}
	})

	t.Run("create failure releases stock", func(t *testing.T) {
		svc, repo, catalog, _ := makeSvc(product("a", "5.00", 4, "s1"), product("b", "5.00", 4, "s2"))
		repo.createErr = errors.New("disk full")

		_, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 1}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
		})
		if err == nil || err.Error() != "disk full" {
			t.Fatalf("expected create error, got %v", err)
		}
		if catalog.stock("a") != 4 || catalog.stock("b") != 4 {
			t.Fatalf("expected stock restored, got a=%d b=%d", catalog.stock("a"), catalog.stock("b"))
		}
	})

	t.Run("notifier failure does not fail the order", func(t *testing.T) {
		svc, _, _, notifier := makeSvc(product("a", "5.00", 4, "s1"))
		notifier.err = errors.New("redis down")

		res, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "a", Quantity: 1}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
		})
		if err != nil || !res.Created {
			t.Fatalf("expected created order, got %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		svc, _, catalog, _ := makeSvc(product("a", "5.00", 4, "s1"))
		valid := PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "a", Quantity: 1}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
		}

		cases := []struct {
			name  string
			actor domain.Actor
			mod   func(in *PlaceOrderInput)
			want  error
		}{
			{name: "anonymous", actor: domain.Actor{}, want: domain.ErrUnauthenticated},
			{name: "seller", actor: testSeller, want: domain.ErrForbidden},
			{name: "empty items", actor: testBuyer, mod: func(in *PlaceOrderInput) { in.Items = nil }, want: domain.ErrEmptyOrder},
			{name: "zero quantity", actor: testBuyer, mod: func(in *PlaceOrderInput) { in.Items = []ItemRequest{{ProductID: "a"}} }, want: domain.ErrInvalidQuantity},
			{name: "missing address", actor: testBuyer, mod: func(in *PlaceOrderInput) { in.ShippingAddress.City = "" }, want: domain.ErrAddressRequired},
			{name: "bad payment method", actor: testBuyer, mod: func(in *PlaceOrderInput) { in.PaymentMethod = "barter" }, want: domain.ErrInvalidPaymentMethod},
			{name: "unknown product", actor: testBuyer, mod: func(in *PlaceOrderInput) { in.Items = []ItemRequest{{ProductID: "zzz", Quantity: 1}} }, want: domain.ErrProductNotFound},
		}

		for _, tc := range cases {
			in := valid
			in.Items = append([]ItemRequest(nil), valid.Items...)
			if tc.mod != nil {
				tc.mod(&in)
			}
			_, err := svc.PlaceOrder(context.Background(), tc.actor, in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
			}
		}
		if got := catalog.stock("a"); got != 4 {
			t.Fatalf("expected stock untouched, got %d", got)
		}
	})
}

func TestOrderService_PlaceOrderIdempotency(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	t.Run("retry returns existing order without reserving again", func(t *testing.T) {
		repo := newFakeOrderRepo()
		catalog := newFakeCatalog(product("a", "5.00", 10, "s1"))
		svc := NewOrderService(repo, catalog, clock.NewManual(now), WithLogger(discardLogger()))

		in := PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "a", Quantity: 2}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
			IdempotencyKey:  "idem-1",
		}
		first, err := svc.PlaceOrder(context.Background(), testBuyer, in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := svc.PlaceOrder(context.Background(), testBuyer, in)
		if err != nil {
			t.Fatalf("expected no error on retry, got %v", err)
		}
		if second.Created {
			t.Fatalf("expected Created=false on retry")
		}
		if second.Order.ID != first.Order.ID {
			t.Fatalf("expected same order, got %s and %s", first.Order.ID, second.Order.ID)
		}
		if got := catalog.stock("a"); got != 8 {
			t.Fatalf("expected stock decremented once to 8, got %d", got)
		}
	})

	t.Run("same key with different items conflicts", func(t *testing.T) {
		repo := newFakeOrderRepo(domain.Order{
			ID:             "order-1",
			Buyer:          testBuyer.Buyer(),
			Items:          []domain.LineItem{{ProductID: "a", Quantity: 2}},
			IdempotencyKey: "idem-2",
		})
		svc := NewOrderService(repo, newFakeCatalog(product("a", "5.00", 10, "s1")), clock.NewManual(now), WithLogger(discardLogger()))

		_, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "a", Quantity: 3}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
			IdempotencyKey:  "idem-2",
		})
		if err != domain.ErrIdempotencyConflict {
			t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
		}
	})

	t.Run("losing the insert race returns the winner", func(t *testing.T) {
		winner := domain.Order{
			ID:             "order-winner",
			Buyer:          testBuyer.Buyer(),
			Items:          []domain.LineItem{{ProductID: "a", Quantity: 1}},
			IdempotencyKey: "idem-3",
		}
		repo := &racingOrderRepo{fakeOrderRepo: newFakeOrderRepo(), winner: winner}
		catalog := newFakeCatalog(product("a", "5.00", 10, "s1"))
		svc := NewOrderService(repo, catalog, clock.NewManual(now), WithLogger(discardLogger()))

		res, err := svc.PlaceOrder(context.Background(), testBuyer, PlaceOrderInput{
			Items:           []ItemRequest{{ProductID: "a", Quantity: 1}},
			ShippingAddress: testAddr,
			PaymentMethod:   domain.PaymentMethodCard,
			IdempotencyKey:  "idem-3",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Created || res.Order.ID != "order-winner" {
			t.Fatalf("expected winner order, got %+v", res)
		}
		if got := catalog.stock("a"); got != 10 {
			t.Fatalf("expected stock released to 10, got %d", got)
		}
	})
}

// racingOrderRepo hides the winner from the first lookup and reports a
// unique violation on insert, as a concurrent duplicate would.
type racingOrderRepo struct {
	*fakeOrderRepo
	winner domain.Order
	looked bool
}

func (r *racingOrderRepo) FindOrderByIdempotencyKey(_ context.Context, _, _ string) (*domain.Order, error) {
	if !r.looked {
		r.looked = true
		return nil, nil
	}
	w := r.winner
	return &w, nil
}

func (r *racingOrderRepo) CreateOrder(context.Context, domain.Order) error {
	return domain.ErrIdempotencyConflict
}

func TestOrderService_ConcurrentLastUnit(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	catalog := newFakeCatalog(product("last", "15.00", 1, "s1"))
	svc := NewOrderService(repo, catalog, clock.NewSystem(), WithLogger(discardLogger()))

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		shortages int
	)
	start := make(chan struct{})
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			actor := domain.Actor{ID: "buyer-" + string(rune('a'+i)), Role: domain.RoleBuyer}
			_, err := svc.PlaceOrder(context.Background(), actor, PlaceOrderInput{
				Items:           []ItemRequest{{ProductID: "last", Quantity: 1}},
				ShippingAddress: testAddr,
				PaymentMethod:   domain.PaymentMethodCard,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrInsufficientStock):
				shortages++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if successes != 1 || shortages != buyers-1 {
		t.Fatalf("expected 1 success and %d shortages, got %d and %d", buyers-1, successes, shortages)
	}
	if got := catalog.stock("last"); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
	if repo.count() != 1 {
		t.Fatalf("expected exactly one order, got %d", repo.count())
	}
}

func TestOrderService_ReadAccess(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{ID: "o1", Buyer: domain.Buyer{ID: "buyer-1"}, Items: []domain.LineItem{{SellerID: "s1"}}, CreatedAt: base},
		{ID: "o2", Buyer: domain.Buyer{ID: "buyer-1"}, Items: []domain.LineItem{{SellerID: "s2"}}, CreatedAt: base.Add(time.Hour)},
		{ID: "o3", Buyer: domain.Buyer{ID: "buyer-2"}, Items: []domain.LineItem{{SellerID: "s1"}, {SellerID: "s2"}}, CreatedAt: base.Add(2 * time.Hour)},
	}
	svc := NewOrderService(newFakeOrderRepo(orders...), newFakeCatalog(), clock.NewManual(base), WithLogger(discardLogger()))
	ctx := context.Background()

	t.Run("buyer lists own orders newest first", func(t *testing.T) {
		page, err := svc.ListOrders(ctx, testBuyer, PageRequest{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if page.Total != 2 || len(page.Orders) != 2 || page.Orders[0].ID != "o2" || page.Orders[1].ID != "o1" {
			t.Fatalf("unexpected page: %+v", page)
		}
		if page.Page != 1 || page.Limit != defaultPageLimit {
			t.Fatalf("expected default paging, got page=%d limit=%d", page.Page, page.Limit)
		}
	})

	t.Run("seller lists orders containing their products", func(t *testing.T) {
		page, err := svc.ListOrders(ctx, domain.Actor{ID: "s1", Role: domain.RoleSeller}, PageRequest{Page: 1, Limit: 1})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if page.Total != 2 || len(page.Orders) != 1 || page.Orders[0].ID != "o3" {
			t.Fatalf("unexpected page: %+v", page)
		}

		page, err = svc.ListOrders(ctx, domain.Actor{ID: "s1", Role: domain.RoleSeller}, PageRequest{Page: 2, Limit: 1})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(page.Orders) != 1 || page.Orders[0].ID != "o1" {
			t.Fatalf("unexpected second page: %+v", page)
		}
	})

	t.Run("limit is capped", func(t *testing.T) {
		page, err := svc.ListOrders(ctx, testBuyer, PageRequest{Page: 1, Limit: 1000})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if page.Limit != maxPageLimit {
			t.Fatalf("expected limit %d, got %d", maxPageLimit, page.Limit)
		}
	})

	t.Run("anonymous cannot list", func(t *testing.T) {
		if _, err := svc.ListOrders(ctx, domain.Actor{}, PageRequest{}); err != domain.ErrUnauthenticated {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("get enforces visibility", func(t *testing.T) {
		if _, err := svc.GetOrder(ctx, testBuyer, "o1"); err != nil {
			t.Fatalf("buyer should see own order: %v", err)
		}
		if _, err := svc.GetOrder(ctx, testBuyer, "o3"); err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if _, err := svc.GetOrder(ctx, domain.Actor{ID: "s2", Role: domain.RoleSeller}, "o1"); err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden for non-owning seller, got %v", err)
		}
		if _, err := svc.GetOrder(ctx, domain.Actor{ID: "s2", Role: domain.RoleSeller}, "o3"); err != nil {
			t.Fatalf("owning seller should see order: %v", err)
		}
		if _, err := svc.GetOrder(ctx, testBuyer, "missing"); err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	newOrder := func(status domain.OrderStatus) domain.Order {
		return domain.Order{
			ID:     "order-1",
			Buyer:  testBuyer.Buyer(),
			Status: status,
			Items: []domain.LineItem{
				{ProductID: "a", Quantity: 2, SellerID: "s1", UnitPrice: decimal.NewFromInt(5)},
				{ProductID: "b", Quantity: 1, SellerID: "s2", UnitPrice: decimal.NewFromInt(5)},
			},
			CreatedAt: now.Add(-time.Hour),
		}
	}
	makeSvc := func(order domain.Order) (*OrderService, *fakeOrderRepo, *fakeCatalog, *recordingNotifier, *clock.Manual) {
		repo := newFakeOrderRepo(order)
		catalog := newFakeCatalog(product("a", "5.00", 0, "s1"), product("b", "5.00", 3, "s2"))
		notifier := &recordingNotifier{}
		clk := clock.NewManual(now)
		svc := NewOrderService(repo, catalog, clk, WithNotifier(notifier), WithLogger(discardLogger()))
		return svc, repo, catalog, notifier, clk
	}
	ctx := context.Background()

	t.Run("confirmed to shipped with tracking", func(t *testing.T) {
		svc, repo, _, notifier, _ := makeSvc(newOrder(domain.OrderStatusConfirmed))

		o, err := svc.UpdateStatus(ctx, testSeller, "order-1", domain.Ship{Tracking: domain.Tracking{Number: "TRK-9"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.Status != domain.OrderStatusShipped || o.TrackingNumber != "TRK-9" || o.DeliveredAt != nil {
			t.Fatalf("unexpected order: %+v", o)
		}
		stored, _ := repo.GetOrder(ctx, "order-1")
		if stored.Status != domain.OrderStatusShipped {
			t.Fatalf("expected stored status shipped, got %s", stored.Status)
		}
		if len(notifier.changed) != 1 || notifier.changed[0] != "confirmed->shipped" {
			t.Fatalf("unexpected notifications: %v", notifier.changed)
		}
	})

	t.Run("deliver stamps deliveredAt and then is terminal", func(t *testing.T) {
		svc, _, _, _, clk := makeSvc(newOrder(domain.OrderStatusShipped))
		clk.Advance(2 * time.Hour)

		o, err := svc.UpdateStatus(ctx, testSeller, "order-1", domain.Deliver{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.DeliveredAt == nil || !o.DeliveredAt.Equal(now.Add(2*time.Hour)) {
			t.Fatalf("expected deliveredAt set, got %v", o.DeliveredAt)
		}

		_, err = svc.UpdateStatus(ctx, testSeller, "order-1", domain.SetProcessing{})
		var transitionErr *domain.InvalidTransitionError
		if !errors.As(err, &transitionErr) || transitionErr.From != domain.OrderStatusDelivered {
			t.Fatalf("expected InvalidTransitionError from delivered, got %v", err)
		}
	})

	t.Run("cancel restocks and stamps cancelledAt", func(t *testing.T) {
		svc, _, catalog, _, _ := makeSvc(newOrder(domain.OrderStatusProcessing))

		o, err := svc.UpdateStatus(ctx, testSeller, "order-1", domain.Cancel{Reason: "buyer request"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.CancelledAt == nil || o.CancellationReason != "buyer request" {
			t.Fatalf("unexpected order: %+v", o)
		}
		if catalog.stock("a") != 2 || catalog.stock("b") != 4 {
			t.Fatalf("expected stock restored, got a=%d b=%d", catalog.stock("a"), catalog.stock("b"))
		}
		if !catalog.products["a"].InStock {
			t.Fatalf("expected a back in stock")
		}
	})

	t.Run("illegal transition leaves order unchanged", func(t *testing.T) {
		svc, repo, _, notifier, _ := makeSvc(newOrder(domain.OrderStatusConfirmed))

		_, err := svc.UpdateStatus(ctx, testSeller, "order-1", domain.Deliver{})
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if repo.updates != 0 || len(notifier.changed) != 0 {
			t.Fatalf("expected no update and no notification")
		}
	})

	t.Run("tracking update without status change does not notify", func(t *testing.T) {
		svc, _, _, notifier, _ := makeSvc(newOrder(domain.OrderStatusShipped))

		o, err := svc.UpdateStatus(ctx, testSeller, "order-1", domain.UpdateTracking{Tracking: domain.Tracking{Partner: "FedEx"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.DeliveryPartner != "FedEx" || o.Status != domain.OrderStatusShipped {
			t.Fatalf("unexpected order: %+v", o)
		}
		if len(notifier.changed) != 0 {
			t.Fatalf("expected no notification, got %v", notifier.changed)
		}
	})

	t.Run("authorization", func(t *testing.T) {
		svc, _, _, _, _ := makeSvc(newOrder(domain.OrderStatusConfirmed))

		if _, err := svc.UpdateStatus(ctx, domain.Actor{}, "order-1", domain.SetProcessing{}); err != domain.ErrUnauthenticated {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
		if _, err := svc.UpdateStatus(ctx, testBuyer, "order-1", domain.SetProcessing{}); err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden for buyer, got %v", err)
		}
		stranger := domain.Actor{ID: "s9", Role: domain.RoleSeller}
		if _, err := svc.UpdateStatus(ctx, stranger, "order-1", domain.SetProcessing{}); err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden for non-owning seller, got %v", err)
		}
		if _, err := svc.UpdateStatus(ctx, testSeller, "missing", domain.SetProcessing{}); err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})
}

func checkMoney(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if pricing.Format(got) != want {
		t.Fatalf("expected %s %s, got %s", name, want, pricing.Format(got))
	}
}

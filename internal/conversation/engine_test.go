package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/menubot/internal/cart"
	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/angelmondragon/menubot/pkg/config"
	"github.com/angelmondragon/menubot/pkg/enums"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ann     int64 = 42
	bob     int64 = 43
	manager int64 = 900
)

type fakeCatalog struct {
	mu        sync.Mutex
	snap      *catalog.Snapshot
	next      *catalog.Snapshot
	reloadErr error
	reloads   int
}

func (f *fakeCatalog) Current() *catalog.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeCatalog) Loaded() bool {
	return f.Current() != nil
}

func (f *fakeCatalog) Reload(context.Context) (catalog.ReloadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	if f.reloadErr != nil {
		return catalog.ReloadResult{}, f.reloadErr
	}
	if f.next != nil {
		f.snap = f.next
	}
	return catalog.ReloadResult{Generation: f.snap.Generation()}, nil
}

func (f *fakeCatalog) set(snap *catalog.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func (f *fakeCatalog) Price(slug string) (int64, bool) {
	return f.Current().Price(slug)
}

func (f *fakeCatalog) ProductName(slug string) string {
	return f.Current().ProductName(slug)
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []*orders.Order
	err    error
}

func (r *recordingNotifier) NotifyOrder(_ context.Context, order *orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, order)
	return r.err
}

func (r *recordingNotifier) delivered() []*orders.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*orders.Order(nil), r.orders...)
}

type harness struct {
	engine   *Engine
	catalog  *fakeCatalog
	carts    *cart.Store
	orders   *orders.Registry
	notifier *recordingNotifier
}

func newHarness(t *testing.T, snap *catalog.Snapshot) *harness {
	t.Helper()
	h := &harness{
		catalog:  &fakeCatalog{snap: snap},
		orders:   orders.NewRegistry(func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }),
		notifier: &recordingNotifier{},
	}
	carts, err := cart.NewStore(h.catalog)
	require.NoError(t, err)
	h.carts = carts

	engine, err := NewEngine(EngineParams{
		Catalog:   h.catalog,
		Carts:     carts,
		Orders:    h.orders,
		Notifier:  h.notifier,
		Operators: config.OperatorConfig{IDs: []int64{manager}},
		Money:     money.NewFormatter("₽", 0),
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) command(user int64, text string) Reply {
	return h.engine.Handle(context.Background(), Action{Kind: ActionCommand, UserID: user, ChatID: user, Payload: text, Username: "ann", FirstName: "Ann"})
}

func (h *harness) press(user int64, data string) Reply {
	return h.engine.Handle(context.Background(), Action{Kind: ActionCallback, UserID: user, ChatID: user, Payload: data})
}

func (h *harness) text(user int64, text string) Reply {
	return h.engine.Handle(context.Background(), Action{Kind: ActionText, UserID: user, ChatID: user, Payload: text, Username: "@ann", FirstName: "Ann"})
}

// sampleSnapshot: rolls (flat: cal1, phi1), sushi (grouped: nigiri/nig1, maki/mak1).
func sampleSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snap, report := catalog.Build(
		[]catalog.CategoryRecord{{ID: "rolls", Label: "Rolls"}, {ID: "sushi", Label: "Sushi"}},
		[]catalog.ProductRecord{
			{Slug: "cal1", Category: "rolls", Price: 320, Name: catalog.PlainName("California")},
			{Slug: "phi1", Category: "rolls", Price: 410, Name: catalog.PlainName("Philadelphia")},
			{Slug: "nig1", Category: "sushi", Subcategory: "nigiri", Price: 90, Name: catalog.PlainName("Salmon nigiri")},
			{Slug: "mak1", Category: "sushi", Subcategory: "maki", Price: 80, Name: catalog.PlainName("Tuna maki")},
		},
		catalog.BuildOptions{Generation: 1},
	)
	require.Empty(t, report.Skipped)
	return snap
}

func withoutNigiri(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snap, _ := catalog.Build(
		[]catalog.CategoryRecord{{ID: "rolls", Label: "Rolls"}, {ID: "sushi", Label: "Sushi"}},
		[]catalog.ProductRecord{
			{Slug: "cal1", Category: "rolls", Price: 320, Name: catalog.PlainName("California")},
			{Slug: "mak1", Category: "sushi", Subcategory: "maki", Price: 80, Name: catalog.PlainName("Tuna maki")},
			{Slug: "ura1", Category: "sushi", Subcategory: "uramaki", Price: 70, Name: catalog.PlainName("Uramaki")},
		},
		catalog.BuildOptions{Generation: 2},
	)
	return snap
}

// button returns the callback data of the first button whose data starts with prefix.
func button(t *testing.T, reply Reply, prefix string) string {
	t.Helper()
	require.NotEmpty(t, reply.Messages, "reply has no messages")
	for _, msg := range reply.Messages {
		for _, row := range msg.Keyboard {
			for _, b := range row {
				if strings.HasPrefix(b.Data, prefix) {
					return b.Data
				}
			}
		}
	}
	t.Fatalf("no button with prefix %q in %+v", prefix, reply.Messages)
	return ""
}

func TestStartShowsMenu(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))

	reply := h.command(ann, "/start")

	require.Len(t, reply.Messages, 1)
	assert.Equal(t, StateChoosingCategory, reply.State)
	assert.Equal(t, textWelcome, reply.Messages[0].Text)
	keyboard := reply.Messages[0].Keyboard
	require.Len(t, keyboard, 3)
	assert.Equal(t, "Rolls", keyboard[0][0].Text)
	assert.Equal(t, "Sushi", keyboard[1][0].Text)
	assert.Equal(t, string(TokenCart), keyboard[2][0].Data)
}

func TestStartLoadsCatalogOnDemand(t *testing.T) {
	h := newHarness(t, nil)
	h.catalog.next = sampleSnapshot(t)

	reply := h.command(ann, "/start")

	assert.Equal(t, 1, h.catalog.reloads)
	require.Len(t, reply.Messages, 1)
	assert.Equal(t, textWelcome, reply.Messages[0].Text)
}

func TestStartReportsUnavailableMenu(t *testing.T) {
	h := newHarness(t, nil)
	h.catalog.reloadErr = errors.New("cms down")

	reply := h.command(ann, "/start")

	assert.Equal(t, 1, h.catalog.reloads)
	assert.Empty(t, reply.Messages)
	assert.Equal(t, textMenuUnavailable, reply.Notice)
	assert.Equal(t, StateChoosingCategory, reply.State)
}

func TestFlatCategoryAddsTwice(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))

	menu := h.command(ann, "/start")
	products := h.press(ann, button(t, menu, "c:0"))
	require.Equal(t, StateChoosingProduct, products.State)
	assert.Equal(t, "California - 320₽", products.Messages[0].Keyboard[0][0].Text)

	first := button(t, products, "p:0:-:0")
	h.press(ann, first)
	added := h.press(ann, first)

	assert.False(t, added.Alert)
	assert.Equal(t, StateChoosingProduct, added.State)
	assert.Contains(t, added.Messages[0].Text, "🧺 In cart: 2")
	summary := h.carts.Snapshot(ann)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, cart.Line{Slug: "cal1", Name: "California", Quantity: 2, UnitPrice: 320, LineTotal: 640}, summary.Lines[0])
	assert.Equal(t, int64(640), summary.Total)
}

func TestGroupedCategoryAddsFromSubcategory(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))

	menu := h.command(ann, "/start")
	sections := h.press(ann, button(t, menu, "c:1"))
	require.Equal(t, StateChoosingSubcategory, sections.State)

	products := h.press(ann, button(t, sections, "s:1:0"))
	require.Equal(t, StateChoosingProduct, products.State)
	session := h.engine.Session(ann)
	assert.Equal(t, "sushi", session.CategoryID)
	assert.Equal(t, "nigiri", session.SubcategoryID)

	h.press(ann, button(t, products, "p:1:0:0"))

	summary := h.carts.Snapshot(ann)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, "nig1", summary.Lines[0].Slug)
	assert.Equal(t, 1, summary.Lines[0].Quantity)
	assert.Equal(t, int64(90), summary.Total)
}

func TestStaleProductTokenAfterRebuildIsRejected(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))

	menu := h.command(ann, "/start")
	sections := h.press(ann, button(t, menu, "c:1"))
	products := h.press(ann, button(t, sections, "s:1:0"))
	stale := button(t, products, "p:1:0:0")

	h.catalog.set(withoutNigiri(t))

	for _, data := range []string{stale, "p:1:0:0"} {
		reply := h.press(ann, data)
		assert.True(t, reply.Alert, data)
		assert.Equal(t, StateChoosingProduct, reply.State)
	}
	assert.True(t, h.carts.IsEmpty(ann), "no item may be added from a stale selection")
	assert.Equal(t, "nigiri", h.engine.Session(ann).SubcategoryID)
}

func TestStaleSubcategoryTokenAfterRebuildIsRejected(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))

	menu := h.command(ann, "/start")
	sections := h.press(ann, button(t, menu, "c:1"))
	nigiri := button(t, sections, "s:1:0")

	h.catalog.set(withoutNigiri(t))

	// index 0 now points at maki; the rendered layout no longer matches
	reply := h.press(ann, nigiri)
	assert.True(t, reply.Alert)
	assert.Equal(t, msgMenuChanged, reply.Notice)

	reply = h.press(ann, "s:1:5")
	assert.True(t, reply.Alert)
	assert.Equal(t, StateChoosingSubcategory, reply.State)
}

func TestSubcategoryMustMatchSessionCategory(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))

	h.command(ann, "/start")
	h.press(ann, "c:1")

	reply := h.press(ann, "s:0:0")
	assert.True(t, reply.Alert)
	assert.Equal(t, msgStaleSelection, reply.Notice)
}

func TestCategoryOutOfRangeLeavesSessionAlone(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")
	before := h.engine.Session(ann)

	reply := h.press(ann, "c:7")

	assert.True(t, reply.Alert)
	assert.Equal(t, before, h.engine.Session(ann))
}

func TestCategorySelectionOverwritesSession(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")
	h.press(ann, "c:1")
	h.press(ann, "s:1:1")
	require.Equal(t, "maki", h.engine.Session(ann).SubcategoryID)

	h.press(ann, "menu")
	h.press(ann, "c:0")

	session := h.engine.Session(ann)
	assert.Equal(t, StateChoosingProduct, session.State)
	assert.Equal(t, "rolls", session.CategoryID)
	assert.Empty(t, session.SubcategoryID)
	assert.Equal(t, catalog.NoSubcategory, session.SubcategoryIndex)
}

func TestCheckoutWithEmptyCartKeepsState(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")
	h.press(ann, "c:0")

	reply := h.press(ann, "checkout")

	assert.True(t, reply.Alert)
	assert.Equal(t, msgCartEmpty, reply.Notice)
	assert.Equal(t, StateChoosingProduct, reply.State)
	assert.Equal(t, StateChoosingProduct, h.engine.Session(ann).State)
}

func TestConfirmWithEmptyCartStays(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")
	h.press(ann, "c:0")
	h.press(ann, "p:0:-:0")
	h.press(ann, "checkout")
	h.carts.Clear(ann)

	reply := h.press(ann, "confirm")

	assert.True(t, reply.Alert)
	assert.Equal(t, StateConfirmingOrder, reply.State)
}

func TestEmptyCartButtonReturnsToMenu(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")
	h.press(ann, "c:0")

	reply := h.press(ann, "cart")

	assert.False(t, reply.Alert)
	assert.Equal(t, textCartEmpty, reply.Notice)
	assert.Equal(t, StateChoosingCategory, reply.State)
	require.Len(t, reply.Messages, 1)
	assert.True(t, strings.HasPrefix(reply.Messages[0].Text, textCartEmpty))
}

func checkoutToContact(t *testing.T, h *harness, user int64) {
	t.Helper()
	h.command(user, "/start")
	h.press(user, "c:0")
	h.press(user, "p:0:-:0")
	h.press(user, "p:0:-:1")

	cartView := h.press(user, "cart")
	require.Equal(t, StateConfirmingOrder, cartView.State)
	assert.Equal(t, "📦 Your order:\n\n• California x1 = 320₽\n• Philadelphia x1 = 410₽\n\n💰 Total: 730₽", cartView.Messages[0].Text)

	confirmation := h.press(user, "checkout")
	require.Equal(t, StateConfirmingOrder, confirmation.State)

	prompt := h.press(user, "confirm")
	require.Equal(t, StateWaitingForContact, prompt.State)
}

func TestContactCompletesOrder(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	checkoutToContact(t, h, ann)

	request := h.press(ann, "contact")
	require.Len(t, request.Messages, 1)
	assert.True(t, request.Messages[0].RequestContact)
	assert.Equal(t, StateWaitingForContact, request.State)

	reply := h.engine.Handle(context.Background(), Action{
		Kind: ActionContact, UserID: ann, ChatID: ann, Username: "ann", FirstName: "Ann", Phone: " +79001234567 ",
	})

	assert.False(t, reply.Alert)
	assert.Equal(t, StateChoosingCategory, reply.State)
	require.Len(t, reply.Messages, 2)
	assert.Equal(t, "✅ Order #1 accepted! We will contact you shortly.", reply.Messages[0].Text)
	assert.True(t, reply.Messages[0].RemoveKeyboard)
	assert.NotEmpty(t, reply.Messages[1].Keyboard)

	order, err := h.orders.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "+79001234567", order.Phone)
	assert.Equal(t, "ann", order.Username)
	assert.Equal(t, int64(730), order.TotalSum)
	assert.Equal(t, enums.OrderStatusNew, order.Status)
	assert.Len(t, order.Items, 2)
	assert.True(t, h.carts.IsEmpty(ann))

	delivered := h.notifier.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, int64(1), delivered[0].ID)
}

func TestPlacedOrderIgnoresLaterCartAndCatalogChanges(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	checkoutToContact(t, h, ann)
	h.text(ann, "+79001234567")

	h.press(ann, "c:0")
	h.press(ann, "p:0:-:0")
	h.catalog.set(withoutNigiri(t))

	order, err := h.orders.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(730), order.TotalSum)
	require.Len(t, order.Items, 2)
	assert.Equal(t, orders.Item{Slug: "phi1", Name: "Philadelphia", Quantity: 1, LineTotal: 410}, order.Items[1])

	delivered := h.notifier.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, int64(730), delivered[0].TotalSum)
	assert.Equal(t, 1, h.orders.Len())
}

func TestRemovedProductBlocksCheckout(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")
	h.press(ann, "c:0")
	h.press(ann, "p:0:-:0")
	h.press(ann, "p:0:-:1")
	h.catalog.set(withoutNigiri(t))

	cartView := h.press(ann, "cart")
	require.Equal(t, StateConfirmingOrder, cartView.State)
	assert.Contains(t, cartView.Messages[0].Text, "No longer on the menu: phi1")
	assert.Contains(t, cartView.Messages[0].Text, "Total: 320₽")

	reply := h.press(ann, "checkout")
	assert.True(t, reply.Alert)
	assert.Equal(t, msgItemsGone, reply.Notice)
	assert.Equal(t, StateConfirmingOrder, h.engine.Session(ann).State)

	cleared := h.press(ann, "clear")
	assert.Equal(t, StateChoosingCategory, cleared.State)
	assert.True(t, h.carts.IsEmpty(ann))
	assert.Zero(t, h.orders.Len())
}

func TestRemovedProductBlocksCompletion(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	checkoutToContact(t, h, ann)
	h.catalog.set(withoutNigiri(t))

	reply := h.text(ann, "+1")

	assert.True(t, reply.Alert)
	assert.Equal(t, msgItemsGone, reply.Notice)
	assert.Equal(t, StateWaitingForContact, h.engine.Session(ann).State)
	assert.Zero(t, h.orders.Len())
	assert.Empty(t, h.notifier.delivered())
	assert.False(t, h.carts.IsEmpty(ann))
}

func TestTextInsteadOfContact(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	checkoutToContact(t, h, ann)

	reply := h.text(ann, "  ")

	assert.Equal(t, StateChoosingCategory, reply.State)
	order, err := h.orders.Get(1)
	require.NoError(t, err)
	assert.Equal(t, orders.NotProvided, order.Phone)
}

func TestNotificationFailureKeepsOrder(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.notifier.err = errors.New("telegram down")
	checkoutToContact(t, h, ann)

	reply := h.text(ann, "+100")

	assert.False(t, reply.Alert)
	assert.Equal(t, 1, h.orders.Len())
	assert.True(t, h.carts.IsEmpty(ann))
}

func TestTextOutsideContactStepIsHint(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")
	h.press(ann, "c:0")

	reply := h.text(ann, "hello")

	require.Len(t, reply.Messages, 1)
	assert.Equal(t, textUseButtons, reply.Messages[0].Text)
	assert.Equal(t, StateChoosingProduct, reply.State)
	assert.Zero(t, h.orders.Len())
}

func TestCancelAndClear(t *testing.T) {
	t.Run("cancel while waiting for contact", func(t *testing.T) {
		h := newHarness(t, sampleSnapshot(t))
		checkoutToContact(t, h, ann)

		reply := h.press(ann, "cancel")

		assert.Equal(t, StateChoosingCategory, reply.State)
		assert.Equal(t, textOrderCancelled, reply.Notice)
		require.Len(t, reply.Messages, 2)
		assert.True(t, reply.Messages[0].RemoveKeyboard)
		assert.True(t, h.carts.IsEmpty(ann))
	})

	t.Run("clear from cart view", func(t *testing.T) {
		h := newHarness(t, sampleSnapshot(t))
		h.command(ann, "/start")
		h.press(ann, "c:0")
		h.press(ann, "p:0:-:0")
		h.press(ann, "cart")

		reply := h.press(ann, "clear")

		assert.Equal(t, StateChoosingCategory, reply.State)
		assert.Equal(t, textCartCleared, reply.Notice)
		assert.True(t, h.carts.IsEmpty(ann))
	})

	t.Run("cancel outside checkout is a conflict", func(t *testing.T) {
		h := newHarness(t, sampleSnapshot(t))
		h.command(ann, "/start")
		h.press(ann, "c:0")
		h.press(ann, "p:0:-:0")

		reply := h.press(ann, "cancel")

		assert.True(t, reply.Alert)
		assert.Equal(t, msgNothingToCancel, reply.Notice)
		assert.Equal(t, StateChoosingProduct, reply.State)
		assert.False(t, h.carts.IsEmpty(ann))
	})
}

func TestBackEdges(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")

	h.press(ann, "c:1")
	h.press(ann, "s:1:1")
	reply := h.press(ann, "back")
	assert.Equal(t, StateChoosingSubcategory, reply.State)
	assert.Equal(t, "sushi", h.engine.Session(ann).CategoryID)

	reply = h.press(ann, "back")
	assert.Equal(t, StateChoosingCategory, reply.State)

	reply = h.press(ann, "back")
	assert.Equal(t, StateChoosingCategory, reply.State)
	require.Len(t, reply.Messages, 1)

	h.press(ann, "c:0")
	reply = h.press(ann, "back")
	assert.Equal(t, StateChoosingCategory, reply.State)

	h.press(ann, "c:0")
	h.press(ann, "p:0:-:0")
	h.press(ann, "checkout")
	h.press(ann, "confirm")
	reply = h.press(ann, "back")
	assert.Equal(t, StateConfirmingOrder, reply.State)
	reply = h.press(ann, "back")
	assert.Equal(t, StateChoosingCategory, reply.State)
	assert.False(t, h.carts.IsEmpty(ann), "navigating back keeps the cart")
}

func TestWrongStepIsConflict(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")

	for _, data := range []string{"p:0:-:0", "s:1:0", "confirm", "contact"} {
		reply := h.press(ann, data)
		assert.True(t, reply.Alert, data)
		assert.Equal(t, StateChoosingCategory, reply.State, data)
	}

	reply := h.press(ann, "x:1")
	assert.True(t, reply.Alert)
	assert.Equal(t, msgBadToken, reply.Notice)
}

func TestConcurrentUsersKeepSeparateCarts(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))

	var wg sync.WaitGroup
	for _, tc := range []struct {
		user    int64
		product string
		times   int
	}{
		{user: ann, product: "p:0:-:0", times: 3},
		{user: bob, product: "p:0:-:1", times: 2},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.command(tc.user, "/start")
			h.press(tc.user, "c:0")
			for i := 0; i < tc.times; i++ {
				h.press(tc.user, tc.product)
			}
			h.press(tc.user, "checkout")
			h.press(tc.user, "confirm")
			h.text(tc.user, "+1")
		}()
	}
	wg.Wait()

	require.Equal(t, 2, h.orders.Len())
	annID := ann
	annOrders := h.orders.List(orders.Filter{UserID: &annID})
	require.Len(t, annOrders, 1)
	assert.Equal(t, int64(960), annOrders[0].TotalSum)
	assert.Equal(t, "cal1", annOrders[0].Items[0].Slug)

	bobID := bob
	bobOrders := h.orders.List(orders.Filter{UserID: &bobID})
	require.Len(t, bobOrders, 1)
	assert.Equal(t, int64(820), bobOrders[0].TotalSum)
	assert.Equal(t, "phi1", bobOrders[0].Items[0].Slug)
}

func TestSameUserActionsAreSerialized(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	h.command(ann, "/start")
	h.press(ann, "c:0")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.press(ann, "p:0:-:0")
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, h.carts.Quantity(ann, "cal1"))
}

func TestMyIDAndHelp(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))

	reply := h.command(ann, "/myid")
	require.Len(t, reply.Messages, 1)
	assert.Equal(t, "🆔 Your id: 42\n👤 Name: Ann\n📱 Username: @ann", reply.Messages[0].Text)

	reply = h.command(ann, "/help@menubot")
	assert.NotContains(t, reply.Messages[0].Text, "/orders")
	reply = h.command(manager, "/help")
	assert.Contains(t, reply.Messages[0].Text, "/orders")

	reply = h.command(ann, "/nope")
	assert.Equal(t, textUnknownCommand, reply.Messages[0].Text)
}

func TestOperatorCommands(t *testing.T) {
	h := newHarness(t, sampleSnapshot(t))
	checkoutToContact(t, h, ann)
	h.text(ann, "+1")

	t.Run("customers are refused", func(t *testing.T) {
		reply := h.command(ann, "/orders")
		assert.True(t, reply.Alert)
		assert.Equal(t, msgOperatorsOnly, reply.Notice)

		reply = h.press(ann, "os:1:completed")
		assert.True(t, reply.Alert)
		order, err := h.orders.Get(1)
		require.NoError(t, err)
		assert.Equal(t, enums.OrderStatusNew, order.Status)
	})

	t.Run("list and detail", func(t *testing.T) {
		reply := h.command(manager, "/orders")
		require.Len(t, reply.Messages, 1)
		assert.Equal(t, "🆕 #1 - 730₽", reply.Messages[0].Keyboard[0][0].Text)

		detail := h.press(manager, button(t, reply, "o:1"))
		require.Len(t, detail.Messages, 1)
		keyboard := detail.Messages[0].Keyboard
		require.Len(t, keyboard, 4)
		assert.Equal(t, "os:1:processing", keyboard[0][0].Data)
		assert.Equal(t, "os:1:completed", keyboard[1][0].Data)
		assert.Equal(t, "os:1:cancelled", keyboard[2][0].Data)
		assert.Equal(t, string(TokenOrders), keyboard[3][0].Data)
	})

	t.Run("status updates", func(t *testing.T) {
		reply := h.press(manager, "os:1:processing")
		assert.False(t, reply.Alert)
		assert.Equal(t, "✅ Status updated to: processing", reply.Notice)
		require.Len(t, reply.Messages[0].Keyboard, 3)

		reply = h.press(manager, "os:1:processing")
		assert.True(t, reply.Alert)

		reply = h.press(manager, "os:99:completed")
		assert.True(t, reply.Alert)

		reply = h.press(manager, "os:1:shipped")
		assert.True(t, reply.Alert)
	})
}

func TestNewEngineValidatesParams(t *testing.T) {
	_, err := NewEngine(EngineParams{})
	require.Error(t, err)

	h := newHarness(t, sampleSnapshot(t))
	_, err = NewEngine(EngineParams{Catalog: h.catalog, Carts: h.carts, Orders: h.orders})
	require.EqualError(t, err, "logger required")
}

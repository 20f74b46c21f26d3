package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/menubot/internal/cart"
	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/internal/orders"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/metrics"
	"github.com/angelmondragon/menubot/pkg/money"
)

const (
	defaultOrderListLimit = 10

	msgWrongStep       = "This button is no longer active. Please use the latest menu."
	msgNothingToCancel = "There is no order in progress."
	msgCartEmpty       = "🛒 Your cart is empty. Add something from the menu first."
	msgItemsGone       = "Some items in your cart are no longer on the menu. Clear the cart and pick again."
	msgMenuChanged     = "The menu has been updated. Send /start to see the latest one."
	msgStaleSelection  = "This selection is no longer available. Please pick again from the menu."
	msgMenuUnavailable = "The menu is unavailable right now. Please try again later."
	msgUnsupported     = "This action is not supported."
	msgSomethingWrong  = "⚠️ Something went wrong. Please try again."
)

type EngineParams struct {
	Catalog   CatalogReader
	Carts     CartStore
	Orders    OrderRegistry
	Notifier  Notifier
	Operators OperatorDirectory
	Sessions  *SessionStore
	Money     money.Formatter
	// OrderFormatter defaults to one built from Money in UTC.
	OrderFormatter *orders.Formatter
	OrderListLimit int
	Logger         *logger.Logger
	Metrics        *metrics.ConversationMetrics
	Clock          func() time.Time
}

// Engine drives the per-user navigation state machine.
type Engine struct {
	catalog   CatalogReader
	carts     CartStore
	orders    OrderRegistry
	notifier  Notifier
	operators OperatorDirectory
	sessions  *SessionStore
	views     views
	listLimit int
	logg      *logger.Logger
	metrics   *metrics.ConversationMetrics
	clock     func() time.Time
	locks     *userLocks
}

type noopNotifier struct{}

func (noopNotifier) NotifyOrder(context.Context, *orders.Order) error { return nil }

type noOperators struct{}

func (noOperators) IsOperator(int64) bool { return false }

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Catalog == nil {
		return nil, errors.New("catalog reader required")
	}
	if params.Carts == nil {
		return nil, errors.New("cart store required")
	}
	if params.Orders == nil {
		return nil, errors.New("order registry required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}

	notifier := params.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	operators := params.Operators
	if operators == nil {
		operators = noOperators{}
	}
	sessions := params.Sessions
	if sessions == nil {
		sessions = NewSessionStore()
	}
	formatter := orders.NewFormatter(params.Money, time.UTC)
	if params.OrderFormatter != nil {
		formatter = *params.OrderFormatter
	}
	limit := params.OrderListLimit
	if limit <= 0 {
		limit = defaultOrderListLimit
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Engine{
		catalog:   params.Catalog,
		carts:     params.Carts,
		orders:    params.Orders,
		notifier:  notifier,
		operators: operators,
		sessions:  sessions,
		views:     views{money: params.Money, orders: formatter},
		listLimit: limit,
		logg:      params.Logger,
		metrics:   params.Metrics,
		clock:     clock,
		locks:     newUserLocks(),
	}, nil
}

// Session exposes the user's current session.
func (e *Engine) Session(userID int64) Session {
	return e.sessions.Get(userID)
}

// Handle applies one action. It never fails: rejected actions come back as a
// notice with the session left untouched.
func (e *Engine) Handle(ctx context.Context, action Action) (reply Reply) {
	unlock := e.locks.lock(action.UserID)
	defer unlock()

	ctx = e.logg.WithUserID(ctx, action.UserID)
	ctx = e.logg.WithField(ctx, "action", string(action.Kind))
	e.metrics.IncAction(string(action.Kind))

	session := e.sessions.Get(action.UserID)
	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.Newf(pkgerrors.CodeInternal, "action panicked: %v", r)
			e.logg.Error(ctx, "action failed", err)
			reply = e.reject(session, err)
		}
	}()

	next, out, err := e.dispatch(ctx, action, session)
	if err != nil {
		e.logRejection(ctx, err)
		return e.reject(session, err)
	}

	next.UpdatedAt = e.clock()
	e.sessions.Put(action.UserID, next)
	if next.State != session.State {
		e.logg.Info(e.logg.WithFields(ctx, map[string]any{
			"from": string(session.State),
			"to":   string(next.State),
		}), "state changed")
	}
	out.State = next.State
	return out
}

func (e *Engine) dispatch(ctx context.Context, action Action, session Session) (Session, Reply, error) {
	switch action.Kind {
	case ActionCommand:
		return e.handleCommand(ctx, action, session)
	case ActionCallback:
		token, err := ParseToken(action.Payload)
		if err != nil {
			return session, Reply{}, err
		}
		return e.handleCallback(ctx, action, session, token)
	case ActionContact:
		if session.State != StateWaitingForContact {
			return session, hint(textUseButtons), nil
		}
		return e.complete(ctx, action, session, strings.TrimSpace(action.Phone))
	case ActionText:
		if session.State != StateWaitingForContact {
			return session, hint(textUseButtons), nil
		}
		return e.complete(ctx, action, session, strings.TrimSpace(action.Payload))
	default:
		return session, Reply{}, pkgerrors.New(pkgerrors.CodeValidation, msgUnsupported).
			WithDetails(map[string]any{"kind": action.Kind})
	}
}

func (e *Engine) handleCommand(ctx context.Context, action Action, session Session) (Session, Reply, error) {
	switch commandName(action.Payload) {
	case "start":
		return e.start(ctx)
	case "myid":
		return session, Reply{Messages: []Message{e.views.whoami(action)}}, nil
	case "help":
		text := textHelp
		if e.operators.IsOperator(action.UserID) {
			text += textHelpOperator
		}
		return session, hint(text), nil
	case "orders":
		reply, err := e.listOrders(action)
		return session, reply, err
	default:
		return session, hint(textUnknownCommand), nil
	}
}

// commandName turns "/start@menubot payload" into "start".
func commandName(payload string) string {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimPrefix(fields[0], "/")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}

func (e *Engine) start(ctx context.Context) (Session, Reply, error) {
	next := newSession(e.clock())
	if !e.catalog.Loaded() {
		if _, err := e.catalog.Reload(ctx); err != nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "on-demand catalog load failed")
		}
	}
	snap := e.catalog.Current()
	if snap == nil {
		return next, Reply{Notice: textMenuUnavailable}, nil
	}
	return next, Reply{Messages: []Message{e.views.menu(snap, textWelcome)}}, nil
}

func (e *Engine) handleCallback(ctx context.Context, action Action, session Session, token Token) (Session, Reply, error) {
	switch token.Kind {
	case TokenCategory:
		return e.selectCategory(session, token)
	case TokenSubcategory:
		return e.selectSubcategory(session, token)
	case TokenProduct:
		return e.selectProduct(action, session, token)
	case TokenBack:
		return e.back(action, session)
	case TokenMenu, TokenMore:
		return e.menu("")
	case TokenCart:
		return e.showCart(action, session)
	case TokenCheckout:
		return e.checkout(action, session)
	case TokenConfirm:
		return e.confirm(action, session)
	case TokenContact:
		if session.State != StateWaitingForContact {
			return session, Reply{}, wrongStep(session, token)
		}
		return session, Reply{Messages: []Message{e.views.contactRequest()}}, nil
	case TokenCancel, TokenClear:
		return e.abandon(action, session, token)
	case TokenOrders:
		reply, err := e.listOrders(action)
		return session, reply, err
	case TokenOrder:
		reply, err := e.showOrder(action, token)
		return session, reply, err
	case TokenOrderStatus:
		reply, err := e.updateOrderStatus(ctx, action, token)
		return session, reply, err
	default:
		return session, Reply{}, badToken(action.Payload)
	}
}

// snapshot returns the live catalog and checks the token was rendered against it.
func (e *Engine) snapshot(token Token) (*catalog.Snapshot, error) {
	snap := e.catalog.Current()
	if snap == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, msgMenuUnavailable)
	}
	if token.Layout != "" && token.Layout != snap.Layout() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgMenuChanged).
			WithDetails(map[string]any{"layout": token.Layout, "current": snap.Layout()})
	}
	return snap, nil
}

func (e *Engine) selectCategory(session Session, token Token) (Session, Reply, error) {
	if session.State != StateChoosingCategory {
		return session, Reply{}, wrongStep(session, token)
	}
	snap, err := e.snapshot(token)
	if err != nil {
		return session, Reply{}, err
	}
	category, err := snap.ResolveCategory(token.Category)
	if err != nil {
		return session, Reply{}, err
	}

	next := Session{
		CategoryID:       category.ID,
		CategoryIndex:    token.Category,
		SubcategoryIndex: catalog.NoSubcategory,
	}
	if category.Content.Kind == catalog.ContentGrouped {
		next.State = StateChoosingSubcategory
		return next, Reply{Messages: []Message{e.views.subcategories(snap, token.Category, category)}}, nil
	}
	next.State = StateChoosingProduct
	msg := e.views.products(snap, token.Category, catalog.NoSubcategory, category.Label, category.Content.Items)
	return next, Reply{Messages: []Message{msg}}, nil
}

func (e *Engine) selectSubcategory(session Session, token Token) (Session, Reply, error) {
	if session.State != StateChoosingSubcategory {
		return session, Reply{}, wrongStep(session, token)
	}
	snap, err := e.snapshot(token)
	if err != nil {
		return session, Reply{}, err
	}
	ci, ok := snap.Index().CategoryIndex(session.CategoryID)
	if !ok || ci != token.Category {
		return session, Reply{}, staleSelection(token)
	}
	group, err := snap.ResolveGroup(ci, token.Subcategory)
	if err != nil {
		return session, Reply{}, err
	}
	category, err := snap.ResolveCategory(ci)
	if err != nil {
		return session, Reply{}, err
	}

	next := session
	next.State = StateChoosingProduct
	next.CategoryIndex = ci
	next.SubcategoryID = group.ID
	next.SubcategoryIndex = token.Subcategory
	title := fmt.Sprintf("%s › %s", category.Label, snap.SubcategoryLabel(group.ID))
	return next, Reply{Messages: []Message{e.views.products(snap, ci, token.Subcategory, title, group.Items)}}, nil
}

// position re-resolves the session's selection against snap.
func position(snap *catalog.Snapshot, session Session) (int, int, bool) {
	ci, ok := snap.Index().CategoryIndex(session.CategoryID)
	if !ok {
		return 0, 0, false
	}
	if session.SubcategoryIndex == catalog.NoSubcategory {
		return ci, catalog.NoSubcategory, true
	}
	si, ok := snap.Index().SubcategoryIndex(ci, session.SubcategoryID)
	if !ok {
		return 0, 0, false
	}
	return ci, si, true
}

func (e *Engine) selectProduct(action Action, session Session, token Token) (Session, Reply, error) {
	if session.State != StateChoosingProduct {
		return session, Reply{}, wrongStep(session, token)
	}
	snap, err := e.snapshot(token)
	if err != nil {
		return session, Reply{}, err
	}
	ci, si, ok := position(snap, session)
	if !ok || ci != token.Category || si != token.Subcategory {
		return session, Reply{}, staleSelection(token)
	}
	product, err := snap.ResolveProduct(ci, si, token.Product)
	if err != nil {
		return session, Reply{}, err
	}
	quantity, err := e.carts.Add(action.UserID, product.Slug)
	if err != nil {
		return session, Reply{}, err
	}
	return session, Reply{
		Messages: []Message{e.views.added(product, quantity)},
		Notice:   "✅ Added to cart",
	}, nil
}

func (e *Engine) back(action Action, session Session) (Session, Reply, error) {
	switch session.State {
	case StateChoosingProduct:
		if session.SubcategoryIndex == catalog.NoSubcategory {
			return e.menu("")
		}
		snap := e.catalog.Current()
		ci, ok := snap.Index().CategoryIndex(session.CategoryID)
		if !ok {
			return e.menu("")
		}
		category, err := snap.ResolveCategory(ci)
		if err != nil || category.Content.Kind != catalog.ContentGrouped {
			return e.menu("")
		}
		next := Session{
			State:            StateChoosingSubcategory,
			CategoryID:       category.ID,
			CategoryIndex:    ci,
			SubcategoryIndex: catalog.NoSubcategory,
		}
		return next, Reply{Messages: []Message{e.views.subcategories(snap, ci, category)}}, nil
	case StateWaitingForContact:
		summary := e.carts.Snapshot(action.UserID)
		if len(summary.Lines) == 0 {
			return e.menu("")
		}
		next := session
		next.State = StateConfirmingOrder
		return next, Reply{Messages: []Message{e.views.confirmation(summary)}}, nil
	default:
		return e.menu("")
	}
}

func (e *Engine) menu(header string) (Session, Reply, error) {
	return newSession(e.clock()), Reply{Messages: []Message{e.views.menu(e.catalog.Current(), header)}}, nil
}

func (e *Engine) showCart(action Action, session Session) (Session, Reply, error) {
	summary := e.carts.Snapshot(action.UserID)
	if len(summary.Lines) == 0 && len(summary.Unavailable) == 0 {
		next, reply, err := e.menu(textCartEmpty + "\n\n" + textChooseCategory)
		reply.Notice = textCartEmpty
		return next, reply, err
	}
	next := session
	next.State = StateConfirmingOrder
	return next, Reply{Messages: []Message{e.views.cart(summary)}}, nil
}

func (e *Engine) checkout(action Action, session Session) (Session, Reply, error) {
	summary, err := e.orderable(action.UserID)
	if err != nil {
		return session, Reply{}, err
	}
	next := session
	next.State = StateConfirmingOrder
	return next, Reply{Messages: []Message{e.views.confirmation(summary)}}, nil
}

func (e *Engine) confirm(action Action, session Session) (Session, Reply, error) {
	if session.State != StateConfirmingOrder {
		return session, Reply{}, wrongStep(session, Token{Kind: TokenConfirm})
	}
	summary, err := e.orderable(action.UserID)
	if err != nil {
		return session, Reply{}, err
	}
	next := session
	next.State = StateWaitingForContact
	return next, Reply{Messages: []Message{e.views.contactPrompt(summary)}}, nil
}

// orderable snapshots the cart and refuses it when it is empty or holds
// products a rebuild removed.
func (e *Engine) orderable(userID int64) (cart.Summary, error) {
	summary := e.carts.Snapshot(userID)
	if len(summary.Unavailable) > 0 {
		return summary, pkgerrors.New(pkgerrors.CodeValidation, msgItemsGone).
			WithDetails(map[string]any{"unavailable": summary.Unavailable})
	}
	if !summary.Orderable() {
		return summary, pkgerrors.New(pkgerrors.CodeValidation, msgCartEmpty)
	}
	return summary, nil
}

func (e *Engine) abandon(action Action, session Session, token Token) (Session, Reply, error) {
	if session.State != StateConfirmingOrder && session.State != StateWaitingForContact {
		return session, Reply{}, pkgerrors.New(pkgerrors.CodeStateConflict, msgNothingToCancel).
			WithDetails(map[string]any{"state": session.State, "token": token.Kind})
	}
	e.carts.Clear(action.UserID)

	header := textOrderCancelled
	if token.Kind == TokenClear {
		header = textCartCleared
	}
	next, reply, err := e.menu(header + "\n\n" + textChooseCategory)
	reply.Notice = header
	if session.State == StateWaitingForContact {
		// the share-contact keyboard may still be on screen
		reply.Messages = append([]Message{{Text: header, RemoveKeyboard: true}}, reply.Messages...)
	}
	return next, reply, err
}

func (e *Engine) complete(ctx context.Context, action Action, session Session, phone string) (Session, Reply, error) {
	summary, err := e.orderable(action.UserID)
	if err != nil {
		return session, Reply{}, err
	}

	items := make([]orders.Item, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		items = append(items, orders.Item{
			Slug:      line.Slug,
			Name:      line.Name,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}
	order, err := e.orders.Create(orders.CreateInput{
		UserID:      action.UserID,
		Username:    action.Username,
		DisplayName: action.FirstName,
		Phone:       phone,
		Items:       items,
		TotalSum:    summary.Total,
	})
	if err != nil {
		return session, Reply{}, err
	}
	e.carts.Clear(action.UserID)
	e.metrics.IncOrders()

	ctx = e.logg.WithOrderID(ctx, order.ID)
	e.logg.Info(e.logg.WithField(ctx, "total", order.TotalSum), "order created")
	if err := e.notifier.NotifyOrder(ctx, order); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "operators not fully notified")
	}

	return newSession(e.clock()), Reply{Messages: []Message{
		e.views.accepted(order),
		e.views.menu(e.catalog.Current(), textChooseCategory),
	}}, nil
}

func (e *Engine) reject(session Session, err error) Reply {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	e.metrics.IncRejected(string(code))

	notice := msgSomethingWrong
	if pkgerrors.MetadataFor(code).UserVisible {
		notice = pkgerrors.UserMessage(err)
	}
	return Reply{Notice: notice, Alert: true, State: session.State}
}

func (e *Engine) logRejection(ctx context.Context, err error) {
	ctx = e.logg.WithFields(ctx, pkgerrors.LogFields(err))
	typed := pkgerrors.As(err)
	if typed == nil || !pkgerrors.MetadataFor(typed.Code()).UserVisible {
		e.logg.Error(ctx, "action failed", err)
		return
	}
	e.logg.Warn(e.logg.WithField(ctx, "reason", typed.Message()), "action rejected")
}

func wrongStep(session Session, token Token) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msgWrongStep).
		WithDetails(map[string]any{"state": session.State, "token": token.Kind})
}

func staleSelection(token Token) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msgStaleSelection).
		WithDetails(map[string]any{"token": token.Kind, "category_index": token.Category, "subcategory_index": token.Subcategory})
}

func hint(text string) Reply {
	return Reply{Messages: []Message{{Text: text}}}
}

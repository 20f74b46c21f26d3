package conversation

import (
	"context"

	"github.com/angelmondragon/menubot/internal/cart"
	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/angelmondragon/menubot/pkg/enums"
)

// CatalogReader is the read side of the catalog service.
type CatalogReader interface {
	Current() *catalog.Snapshot
	Loaded() bool
	Reload(ctx context.Context) (catalog.ReloadResult, error)
}

type CartStore interface {
	Add(userID int64, slug string) (int, error)
	Snapshot(userID int64) cart.Summary
	Clear(userID int64)
	IsEmpty(userID int64) bool
}

type OrderRegistry interface {
	Create(input orders.CreateInput) (*orders.Order, error)
	Get(id int64) (*orders.Order, error)
	List(filter orders.Filter) []*orders.Order
	SetStatus(id int64, status enums.OrderStatus) (*orders.Order, error)
}

// Notifier relays a completed order to operators. Errors are informational.
type Notifier interface {
	NotifyOrder(ctx context.Context, order *orders.Order) error
}

// OperatorDirectory answers whether a user may run operator commands.
type OperatorDirectory interface {
	IsOperator(userID int64) bool
}

package orders

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/menubot/pkg/enums"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
)

// Registry stores orders in memory and hands out copies.
type Registry struct {
	clock func() time.Time

	mu     sync.RWMutex
	nextID int64
	orders map[int64]*Order
}

func NewRegistry(clock func() time.Time) *Registry {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Registry{clock: clock, nextID: 1, orders: map[int64]*Order{}}
}

// Create assigns the next id and stores a deep copy of the snapshot with status new.
func (r *Registry) Create(input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Your cart is empty.")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order := &Order{
		ID:          r.nextID,
		UserID:      input.UserID,
		Username:    orNotProvided(strings.TrimPrefix(strings.TrimSpace(input.Username), "@")),
		DisplayName: orNotProvided(input.DisplayName),
		Phone:       orNotProvided(input.Phone),
		Items:       append([]Item(nil), input.Items...),
		TotalSum:    input.TotalSum,
		CreatedAt:   r.clock(),
		Status:      enums.OrderStatusNew,
	}
	r.nextID++
	r.orders[order.ID] = order
	return order.clone(), nil
}

func (r *Registry) Get(id int64) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, notFound(id)
	}
	return order.clone(), nil
}

// List returns matching orders, newest first; ties break on the higher id.
func (r *Registry) List(filter Filter) []*Order {
	r.mu.RLock()
	out := make([]*Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		out = append(out, order.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// SetStatus moves an order along its lifecycle.
func (r *Registry) SetStatus(id int64, status enums.OrderStatus) (*Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Unknown order status.").
			WithDetails(map[string]any{"status": string(status)})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, notFound(id)
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order #"+formatID(id)+" cannot move from "+string(order.Status)+" to "+string(status)+".").
			WithDetails(map[string]any{"from": string(order.Status), "to": string(status)})
	}
	order.Status = status
	return order.clone(), nil
}

// Len reports how many orders were ever created.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

func notFound(id int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Order #"+formatID(id)+" not found.").
		WithDetails(map[string]any{"order_id": id})
}

func orNotProvided(value string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return NotProvided
}

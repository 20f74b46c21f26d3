package conversation

import (
	"context"
	"fmt"

	"github.com/angelmondragon/menubot/internal/orders"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
)

const msgOperatorsOnly = "⛔ This command is only available to operators."

func (e *Engine) requireOperator(action Action) error {
	if e.operators.IsOperator(action.UserID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, msgOperatorsOnly)
}

func (e *Engine) listOrders(action Action) (Reply, error) {
	if err := e.requireOperator(action); err != nil {
		return Reply{}, err
	}
	list := e.orders.List(orders.Filter{Limit: e.listLimit})
	return Reply{Messages: []Message{e.views.orderList(list)}}, nil
}

func (e *Engine) showOrder(action Action, token Token) (Reply, error) {
	if err := e.requireOperator(action); err != nil {
		return Reply{}, err
	}
	order, err := e.orders.Get(token.OrderID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Messages: []Message{e.views.orderDetail(order, "")}}, nil
}

func (e *Engine) updateOrderStatus(ctx context.Context, action Action, token Token) (Reply, error) {
	if err := e.requireOperator(action); err != nil {
		return Reply{}, err
	}
	order, err := e.orders.SetStatus(token.OrderID, token.Status)
	if err != nil {
		return Reply{}, err
	}
	ctx = e.logg.WithOrderID(ctx, order.ID)
	e.logg.Info(e.logg.WithField(ctx, "status", order.Status.String()), "order status updated")

	footer := fmt.Sprintf("✅ Status updated to: %s", order.Status)
	return Reply{
		Messages: []Message{e.views.orderDetail(order, footer)},
		Notice:   footer,
	}, nil
}

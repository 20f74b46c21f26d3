package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/menubot/api/responses"
	"github.com/angelmondragon/menubot/api/validators"
	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/angelmondragon/menubot/pkg/enums"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/logger"
)

const (
	defaultOrderLimit = 50
	maxOrderLimit     = 500
)

type orderRegistry interface {
	Get(id int64) (*orders.Order, error)
	List(filter orders.Filter) []*orders.Order
	SetStatus(id int64, status enums.OrderStatus) (*orders.Order, error)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=new processing completed cancelled"`
}

// ListOrders returns orders newest first, optionally filtered by status and user.
func ListOrders(registry orderRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", defaultOrderLimit, 1, maxOrderLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := orders.Filter{Limit: limit}

		if raw := validators.QueryString(r, "status", 32); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			filter.Status = &status
		}
		userID, err := validators.ParseQueryID(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if userID != 0 {
			filter.UserID = &userID
		}

		responses.WriteSuccess(w, registry.List(filter))
	}
}

func GetOrder(registry orderRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := registry.Get(id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateOrderStatus moves an order along its lifecycle. Illegal transitions
// answer 422.
func UpdateOrderStatus(registry orderRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParsePathID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := registry.SetStatus(id, enums.OrderStatus(req.Status))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithOrderID(ctx, order.ID)
			logg.Info(logg.WithField(ctx, "status", order.Status.String()), "order status updated")
		}
		responses.WriteSuccess(w, order)
	}
}

package orders

import (
	"time"

	"github.com/angelmondragon/menubot/pkg/enums"
)

// NotProvided replaces customer fields the user did not share.
const NotProvided = "not provided"

// Item is one order line frozen at checkout.
type Item struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

type Order struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	Phone       string            `json:"phone"`
	Items       []Item            `json:"items"`
	TotalSum    int64             `json:"total_sum"`
	CreatedAt   time.Time         `json:"created_at"`
	Status      enums.OrderStatus `json:"status"`
}

func (o *Order) clone() *Order {
	if o == nil {
		return nil
	}
	out := *o
	out.Items = append([]Item(nil), o.Items...)
	return &out
}

// CreateInput is the checkout snapshot handed to the registry.
type CreateInput struct {
	UserID      int64
	Username    string
	DisplayName string
	Phone       string
	Items       []Item
	TotalSum    int64
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status *enums.OrderStatus
	UserID *int64
	Limit  int
}

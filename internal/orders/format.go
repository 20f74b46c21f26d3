package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/menubot/pkg/money"
)

const timestampLayout = "02.01.2006 15:04"

// Formatter renders orders as chat text for operators.
type Formatter struct {
	Money    money.Formatter
	Location *time.Location
}

func NewFormatter(m money.Formatter, loc *time.Location) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{Money: m, Location: loc}
}

// Notification is the message sent to operators when an order is placed.
func (f Formatter) Notification(o *Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 New order #%d\n\n", o.ID)
	f.writeCustomer(&b, o)
	b.WriteString("\n")
	f.writeItems(&b, o)
	return b.String()
}

// Detail is the operator view of a single order.
func (f Formatter) Detail(o *Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Order #%d\n", o.ID)
	fmt.Fprintf(&b, "🕐 %s\n", f.timestamp(o.CreatedAt))
	fmt.Fprintf(&b, "📊 Status: %s %s\n\n", o.Status.Emoji(), o.Status)
	f.writeCustomer(&b, o)
	b.WriteString("\n")
	f.writeItems(&b, o)
	return b.String()
}

// List summarizes orders one per line.
func (f Formatter) List(orders []*Order) string {
	if len(orders) == 0 {
		return "📭 No orders yet"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Orders: %d\n", len(orders))
	for _, o := range orders {
		fmt.Fprintf(&b, "\n%s #%d | %s | %s | %s", o.Status.Emoji(), o.ID, f.Money.Format(o.TotalSum), f.timestamp(o.CreatedAt), handle(o.Username))
	}
	return b.String()
}

// ListButton is the short label used on the operator's order picker.
func (f Formatter) ListButton(o *Order) string {
	return fmt.Sprintf("%s #%d - %s", o.Status.Emoji(), o.ID, f.Money.Format(o.TotalSum))
}

func (f Formatter) writeCustomer(b *strings.Builder, o *Order) {
	b.WriteString("👤 Customer:\n")
	fmt.Fprintf(b, "   ID: %d\n", o.UserID)
	fmt.Fprintf(b, "   Name: %s\n", o.DisplayName)
	fmt.Fprintf(b, "   Username: %s\n", handle(o.Username))
	fmt.Fprintf(b, "   Phone: %s\n", o.Phone)
}

func (f Formatter) writeItems(b *strings.Builder, o *Order) {
	b.WriteString("📦 Items:\n")
	for _, item := range o.Items {
		fmt.Fprintf(b, "   • %s x%d = %s\n", item.Name, item.Quantity, f.Money.Format(item.LineTotal))
	}
	fmt.Fprintf(b, "\n💰 Total: %s", f.Money.Format(o.TotalSum))
}

func (f Formatter) timestamp(t time.Time) string {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}

func handle(username string) string {
	if username == "" || username == NotProvided {
		return NotProvided
	}
	return "@" + username
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

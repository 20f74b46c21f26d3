package conversation

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/menubot/internal/cart"
	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/internal/orders"
	"github.com/angelmondragon/menubot/pkg/enums"
	"github.com/angelmondragon/menubot/pkg/money"
)

const (
	textWelcome         = "🍽️ Welcome! Choose a category:"
	textChooseCategory  = "🍽️ Choose a category:"
	textMenuUnavailable = "😔 The menu is unavailable right now. Please try again later."
	textCartEmpty       = "🛒 Your cart is empty"
	textCartCleared     = "🗑️ Cart cleared"
	textOrderCancelled  = "❌ Order cancelled"
	textConfirmPrompt   = "✅ Please confirm your order:"
	textContactPrompt   = "📱 To place the order, send your contact:"
	textContactRequest  = "📱 Tap the button below to share your phone number, or type it in a message."
	textOrderAccepted   = "✅ Order #%d accepted! We will contact you shortly."
	textUseButtons      = "Please use the buttons below. Send /start to open the menu."
	textUnknownCommand  = "Unknown command. Send /help to see what I can do."
	textHelp            = "🍽️ Commands:\n/start - open the menu\n/myid - show your id\n/help - this message"
	textHelpOperator    = "\n\n🛠️ Operator:\n/orders - recent orders"

	buttonCart         = "🛒 Cart"
	buttonBack         = "◀️ Back"
	buttonAddMore      = "➕ Add more"
	buttonCheckout     = "🛒 Checkout"
	buttonOrder        = "✅ Checkout"
	buttonClearCart    = "🗑️ Clear cart"
	buttonConfirm      = "✅ Confirm order"
	buttonCancel       = "❌ Cancel"
	buttonSendContact  = "📱 Send contact"
	buttonCancelOrder  = "❌ Cancel order"
	buttonBackToOrders = "◀️ Back to list"
)

var statusButtons = map[enums.OrderStatus]string{
	enums.OrderStatusProcessing: "⏳ To processing",
	enums.OrderStatusCompleted:  "✅ Complete",
	enums.OrderStatusCancelled:  "❌ Cancel",
}

// views renders chat messages from catalog snapshots, carts and orders.
type views struct {
	money  money.Formatter
	orders orders.Formatter
}

func (v views) menu(snap *catalog.Snapshot, header string) Message {
	if snap.Len() == 0 {
		return Message{Text: textMenuUnavailable}
	}
	if header == "" {
		header = textChooseCategory
	}
	layout := snap.Layout()
	rows := make([][]Button, 0, snap.Len()+1)
	for ci, category := range snap.Categories() {
		rows = append(rows, []Button{{Text: category.Label, Data: CategoryToken(ci, layout)}})
	}
	rows = append(rows, []Button{{Text: buttonCart, Data: string(TokenCart)}})
	return Message{Text: header, Keyboard: rows}
}

func (v views) subcategories(snap *catalog.Snapshot, ci int, category catalog.Category) Message {
	layout := snap.Layout()
	rows := make([][]Button, 0, len(category.Content.Groups)+1)
	for si, group := range category.Content.Groups {
		rows = append(rows, []Button{{Text: snap.SubcategoryLabel(group.ID), Data: SubcategoryToken(ci, si, layout)}})
	}
	rows = append(rows, []Button{{Text: buttonBack, Data: string(TokenBack)}})
	return Message{
		Text:     fmt.Sprintf("📋 %s:\n\nChoose a section:", category.Label),
		Keyboard: rows,
	}
}

func (v views) products(snap *catalog.Snapshot, ci, si int, title string, items []catalog.Product) Message {
	layout := snap.Layout()
	rows := make([][]Button, 0, len(items)+1)
	for pi, item := range items {
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("%s - %s", item.Name, v.money.Format(item.Price)),
			Data: ProductToken(ci, si, pi, layout),
		}})
	}
	rows = append(rows, []Button{
		{Text: buttonBack, Data: string(TokenBack)},
		{Text: buttonCart, Data: string(TokenCart)},
	})
	text := fmt.Sprintf("📋 %s:\n\nChoose an item:", title)
	if len(items) == 0 {
		text = fmt.Sprintf("📋 %s:\n\nNothing here yet.", title)
	}
	return Message{Text: text, Keyboard: rows}
}

func (v views) added(product catalog.Product, quantity int) Message {
	return Message{
		Text: fmt.Sprintf("✅ Added to cart!\n\n📦 %s\n💰 Price: %s\n🧺 In cart: %d",
			product.Name, v.money.Format(product.Price), quantity),
		Keyboard: [][]Button{
			{{Text: buttonAddMore, Data: string(TokenMore)}, {Text: buttonCheckout, Data: string(TokenCheckout)}},
			{{Text: buttonBack, Data: string(TokenBack)}},
		},
	}
}

func (v views) cartText(summary cart.Summary) string {
	var b strings.Builder
	b.WriteString("📦 Your order:\n\n")
	for _, line := range summary.Lines {
		fmt.Fprintf(&b, "• %s x%d = %s\n", line.Name, line.Quantity, v.money.Format(line.LineTotal))
	}
	if len(summary.Unavailable) > 0 {
		fmt.Fprintf(&b, "⚠️ No longer on the menu: %s\n", strings.Join(summary.Unavailable, ", "))
	}
	fmt.Fprintf(&b, "\n💰 Total: %s", v.money.Format(summary.Total))
	return b.String()
}

func (v views) cart(summary cart.Summary) Message {
	return Message{
		Text: v.cartText(summary),
		Keyboard: [][]Button{
			{{Text: buttonOrder, Data: string(TokenCheckout)}, {Text: buttonClearCart, Data: string(TokenClear)}},
			{{Text: buttonBack, Data: string(TokenBack)}},
		},
	}
}

func (v views) confirmation(summary cart.Summary) Message {
	return Message{
		Text: v.cartText(summary) + "\n\n" + textConfirmPrompt,
		Keyboard: [][]Button{
			{{Text: buttonConfirm, Data: string(TokenConfirm)}, {Text: buttonCancel, Data: string(TokenCancel)}},
		},
	}
}

func (v views) contactPrompt(summary cart.Summary) Message {
	return Message{
		Text: v.cartText(summary) + "\n\n" + textContactPrompt,
		Keyboard: [][]Button{
			{{Text: buttonSendContact, Data: string(TokenContact)}},
			{{Text: buttonCancelOrder, Data: string(TokenCancel)}},
		},
	}
}

func (v views) contactRequest() Message {
	return Message{Text: textContactRequest, RequestContact: true}
}

func (v views) accepted(order *orders.Order) Message {
	return Message{Text: fmt.Sprintf(textOrderAccepted, order.ID), RemoveKeyboard: true}
}

func (v views) whoami(action Action) Message {
	username := orders.NotProvided
	if action.Username != "" {
		username = "@" + strings.TrimPrefix(action.Username, "@")
	}
	name := action.FirstName
	if name == "" {
		name = orders.NotProvided
	}
	return Message{Text: fmt.Sprintf("🆔 Your id: %d\n👤 Name: %s\n📱 Username: %s", action.UserID, name, username)}
}

func (v views) orderList(list []*orders.Order) Message {
	rows := make([][]Button, 0, len(list))
	for _, order := range list {
		rows = append(rows, []Button{{Text: v.orders.ListButton(order), Data: OrderToken(order.ID)}})
	}
	return Message{Text: v.orders.List(list), Keyboard: rows}
}

func (v views) orderDetail(order *orders.Order, footer string) Message {
	next := order.Status.Next()
	rows := make([][]Button, 0, len(next)+1)
	for _, status := range next {
		rows = append(rows, []Button{{Text: statusButtons[status], Data: OrderStatusToken(order.ID, status)}})
	}
	rows = append(rows, []Button{{Text: buttonBackToOrders, Data: string(TokenOrders)}})
	text := v.orders.Detail(order)
	if footer != "" {
		text += "\n\n" + footer
	}
	return Message{Text: text, Keyboard: rows}
}

package conversation

import (
	"strconv"
	"strings"

	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/pkg/enums"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
)

// TokenKind names a callback token.
type TokenKind string

const (
	TokenCategory    TokenKind = "c"
	TokenSubcategory TokenKind = "s"
	TokenProduct     TokenKind = "p"
	TokenBack        TokenKind = "back"
	TokenMenu        TokenKind = "menu"
	TokenMore        TokenKind = "more"
	TokenCart        TokenKind = "cart"
	TokenCheckout    TokenKind = "checkout"
	TokenConfirm     TokenKind = "confirm"
	TokenContact     TokenKind = "contact"
	TokenCancel      TokenKind = "cancel"
	TokenClear       TokenKind = "clear"
	TokenOrders      TokenKind = "orders"
	TokenOrder       TokenKind = "o"
	TokenOrderStatus TokenKind = "os"
)

const (
	tokenSep    = ":"
	layoutSep   = "@"
	noSubMarker = "-"
)

var bareTokens = map[TokenKind]struct{}{
	TokenBack:     {},
	TokenMenu:     {},
	TokenMore:     {},
	TokenCart:     {},
	TokenCheckout: {},
	TokenConfirm:  {},
	TokenContact:  {},
	TokenCancel:   {},
	TokenClear:    {},
	TokenOrders:   {},
}

const msgBadToken = "This button is not supported. Send /start to open the menu."

// Token is a decoded callback payload. Indices are positions in the catalog
// index at render time; Layout, when set, is the snapshot layout they were
// rendered against.
type Token struct {
	Kind        TokenKind
	Category    int
	Subcategory int
	Product     int
	Layout      string
	OrderID     int64
	Status      enums.OrderStatus
}

func CategoryToken(ci int, layout string) string {
	return withLayout(string(TokenCategory)+tokenSep+strconv.Itoa(ci), layout)
}

func SubcategoryToken(ci, si int, layout string) string {
	return withLayout(strings.Join([]string{string(TokenSubcategory), strconv.Itoa(ci), strconv.Itoa(si)}, tokenSep), layout)
}

// ProductToken encodes a product position; flat categories use "-" for si.
func ProductToken(ci, si, pi int, layout string) string {
	sub := noSubMarker
	if si != catalog.NoSubcategory {
		sub = strconv.Itoa(si)
	}
	return withLayout(strings.Join([]string{string(TokenProduct), strconv.Itoa(ci), sub, strconv.Itoa(pi)}, tokenSep), layout)
}

func OrderToken(id int64) string {
	return string(TokenOrder) + tokenSep + strconv.FormatInt(id, 10)
}

func OrderStatusToken(id int64, status enums.OrderStatus) string {
	return strings.Join([]string{string(TokenOrderStatus), strconv.FormatInt(id, 10), string(status)}, tokenSep)
}

func withLayout(token, layout string) string {
	if layout == "" {
		return token
	}
	return token + layoutSep + layout
}

// ParseToken decodes callback data. Malformed input is a validation error.
func ParseToken(data string) (Token, error) {
	data = strings.TrimSpace(data)
	if _, ok := bareTokens[TokenKind(data)]; ok {
		return Token{Kind: TokenKind(data), Subcategory: catalog.NoSubcategory}, nil
	}

	body, layout, _ := strings.Cut(data, layoutSep)
	parts := strings.Split(body, tokenSep)
	token := Token{Kind: TokenKind(parts[0]), Layout: layout, Subcategory: catalog.NoSubcategory}

	var err error
	switch token.Kind {
	case TokenCategory:
		if len(parts) != 2 {
			return Token{}, badToken(data)
		}
		token.Category, err = parseIndex(parts[1])
	case TokenSubcategory:
		if len(parts) != 3 {
			return Token{}, badToken(data)
		}
		if token.Category, err = parseIndex(parts[1]); err == nil {
			token.Subcategory, err = parseIndex(parts[2])
		}
	case TokenProduct:
		if len(parts) != 4 {
			return Token{}, badToken(data)
		}
		if token.Category, err = parseIndex(parts[1]); err != nil {
			break
		}
		if parts[2] != noSubMarker {
			if token.Subcategory, err = parseIndex(parts[2]); err != nil {
				break
			}
		}
		token.Product, err = parseIndex(parts[3])
	case TokenOrder:
		if len(parts) != 2 || layout != "" {
			return Token{}, badToken(data)
		}
		token.OrderID, err = strconv.ParseInt(parts[1], 10, 64)
	case TokenOrderStatus:
		if len(parts) != 3 || layout != "" {
			return Token{}, badToken(data)
		}
		token.OrderID, err = strconv.ParseInt(parts[1], 10, 64)
		token.Status = enums.OrderStatus(parts[2])
	default:
		return Token{}, badToken(data)
	}
	if err != nil {
		return Token{}, badToken(data)
	}
	return token, nil
}

func parseIndex(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, strconv.ErrRange
	}
	return value, nil
}

func badToken(data string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msgBadToken).
		WithDetails(map[string]any{"token": data})
}

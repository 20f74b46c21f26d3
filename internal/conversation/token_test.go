package conversation

import (
	"testing"

	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/pkg/enums"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenEncoding(t *testing.T) {
	assert.Equal(t, "c:3", CategoryToken(3, ""))
	assert.Equal(t, "c:3@k2x9", CategoryToken(3, "k2x9"))
	assert.Equal(t, "s:1:0@k2x9", SubcategoryToken(1, 0, "k2x9"))
	assert.Equal(t, "p:0:-:4", ProductToken(0, catalog.NoSubcategory, 4, ""))
	assert.Equal(t, "p:1:2:0@k2x9", ProductToken(1, 2, 0, "k2x9"))
	assert.Equal(t, "o:17", OrderToken(17))
	assert.Equal(t, "os:17:completed", OrderStatusToken(17, enums.OrderStatusCompleted))
}

func TestParseToken(t *testing.T) {
	cases := []struct {
		data string
		want Token
	}{
		{data: "back", want: Token{Kind: TokenBack, Subcategory: catalog.NoSubcategory}},
		{data: "checkout", want: Token{Kind: TokenCheckout, Subcategory: catalog.NoSubcategory}},
		{data: "c:2", want: Token{Kind: TokenCategory, Category: 2, Subcategory: catalog.NoSubcategory}},
		{data: "s:1:3@ab12", want: Token{Kind: TokenSubcategory, Category: 1, Subcategory: 3, Layout: "ab12"}},
		{data: "p:0:-:5", want: Token{Kind: TokenProduct, Product: 5, Subcategory: catalog.NoSubcategory}},
		{data: "p:1:0:2@ab12", want: Token{Kind: TokenProduct, Category: 1, Subcategory: 0, Product: 2, Layout: "ab12"}},
		{data: "o:9", want: Token{Kind: TokenOrder, OrderID: 9, Subcategory: catalog.NoSubcategory}},
		{data: "os:9:processing", want: Token{Kind: TokenOrderStatus, OrderID: 9, Status: enums.OrderStatusProcessing, Subcategory: catalog.NoSubcategory}},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			got, err := ParseToken(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTokenRejectsMalformed(t *testing.T) {
	for _, data := range []string{"", "c", "c:", "c:-1", "c:x", "s:1", "p:0:0", "p:0:a:1", "o:x", "os:1", "zz:1", "o:1@ab"} {
		t.Run(data, func(t *testing.T) {
			_, err := ParseToken(data)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

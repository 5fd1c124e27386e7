package model

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRole(t *testing.T) {
	cases := map[string]Role{
		"admin":     RoleAdmin,
		"  ADMIN  ": RoleAdmin,
		"Admin\n":   RoleAdmin,
		"user":      RoleUser,
		"":          RoleUser,
		"superuser": RoleUser,
		"administr": RoleUser,
	}
	for in, want := range cases {
		if got := NormalizeRole(in); got != want {
			t.Fatalf("NormalizeRole(%q)=%q want %q", in, got, want)
		}
	}
}

func TestIdentity_IsAdminDerivedFromRole(t *testing.T) {
	require.True(t, NewIdentity("1", "a", "", " Admin ").IsAdmin())
	require.False(t, NewIdentity("1", "a", "", "staff").IsAdmin())
	require.False(t, Identity{}.IsAdmin())
}

func TestDiscountedPrice(t *testing.T) {
	price := decimal.RequireFromString("20.00")

	got := DiscountedPrice(price, PercentOf(decimal.NewFromInt(25)))
	require.True(t, got.Equal(decimal.RequireFromString("15.00")), "got %s", got)

	require.True(t, DiscountedPrice(price, PercentOf(decimal.Zero)).Equal(price))
	require.True(t, DiscountedPrice(price, Percent{}).Equal(price))
	require.True(t, DiscountedPrice(price, PercentOf(decimal.NewFromInt(-10))).Equal(price))
}

func TestPercent_JSON(t *testing.T) {
	type view struct {
		Discount Percent `json:"discountPercent"`
	}

	b, err := json.Marshal(view{Discount: PercentOf(decimal.RequireFromString("12.5"))})
	require.NoError(t, err)
	require.JSONEq(t, `{"discountPercent":12.5}`, string(b))
	var back view
	require.NoError(t, json.Unmarshal(b, &back))
	require.True(t, back.Discount.Set)
	require.True(t, back.Discount.Value.Equal(decimal.RequireFromString("12.5")))

	b, err = json.Marshal(view{})
	require.NoError(t, err)
	require.JSONEq(t, `{"discountPercent":null}`, string(b))
	back = view{Discount: PercentOf(decimal.NewFromInt(5))}
	require.NoError(t, json.Unmarshal(b, &back))
	require.False(t, back.Discount.Set)

	require.NoError(t, json.Unmarshal([]byte(`{"discountPercent":"25"}`), &back))
	require.True(t, back.Discount.Value.Equal(decimal.NewFromInt(25)))

	require.Error(t, json.Unmarshal([]byte(`{"discountPercent":"abc"}`), &back))
}

func TestProduct_FinalPrice(t *testing.T) {
	p := Product{Price: decimal.RequireFromString("9.99"), Discount: PercentOf(decimal.NewFromInt(10))}
	require.Equal(t, "8.991", p.FinalPrice().String())
	require.True(t, p.HasDiscount())
}

func TestNewCart_RecomputesTotalAndCopies(t *testing.T) {
	items := []LineItem{
		{Product: Product{ID: "a"}, Quantity: 2},
		{Product: Product{ID: "b"}, Quantity: 3},
	}
	c := NewCart("c1", items)
	require.Equal(t, 5, c.TotalItems)

	items[0].Quantity = 100
	require.Equal(t, 2, c.Items[0].Quantity, "cart must not alias caller slice")
}

func TestCart_Without(t *testing.T) {
	c := NewCart("c1", []LineItem{
		{Product: Product{ID: "a"}, Quantity: 3},
		{Product: Product{ID: "b"}, Quantity: 1},
	})
	got := c.Without("a")
	require.Len(t, got.Items, 1)
	require.Equal(t, 1, got.TotalItems)
	require.Equal(t, 4, c.TotalItems, "original untouched")

	require.Equal(t, c.TotalItems, c.Without("missing").TotalItems)
}

func TestCart_TotalsAlwaysConsistent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		var items []LineItem
		for i := 0; i < r.Intn(6); i++ {
			items = append(items, LineItem{Product: Product{ID: string(rune('a' + i))}, Quantity: 1 + r.Intn(9)})
		}
		c := NewCart("x", items)
		require.True(t, c.Consistent())
		if len(items) > 0 {
			require.True(t, c.Without(items[0].Product.ID).Consistent())
		}
		require.True(t, c.Clone().Consistent())
	}
}

func TestCart_Subtotal(t *testing.T) {
	c := NewCart("", []LineItem{
		{Product: Product{ID: "a", Price: decimal.NewFromInt(20), Discount: PercentOf(decimal.NewFromInt(25))}, Quantity: 2},
		{Product: Product{ID: "b", Price: decimal.RequireFromString("4.50")}, Quantity: 1},
	})
	require.Equal(t, "34.5", c.Subtotal().String())
	require.Equal(t, 2, c.Quantity("a"))
	require.Equal(t, 0, c.Quantity("zzz"))
}

func TestOrderStatus_Valid(t *testing.T) {
	require.True(t, OrderPreparing.Valid())
	require.False(t, OrderStatus("lost").Valid())
	require.Equal(t, "abcdef", Order{ID: "123abcdef"}.ShortID())
	require.Equal(t, "abc", Order{ID: "abc"}.ShortID())
}

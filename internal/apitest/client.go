package apitest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/restaurant-client/internal/api"
)

// Client returns an api.Client bound to s with its own cookie jar.
func (s *Server) Client(t testing.TB) *api.Client {
	t.Helper()
	c, err := api.New(api.Options{
		BaseURL: s.URL,
		Timeout: 5 * time.Second,
		Logger:  zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	return c
}

// Seed adds one admin, one regular user and a small catalog. It returns the
// products in insertion order.
func (s *Server) Seed() []Product {
	s.AddUser(User{ID: "u-admin", Name: "Ada", Email: "admin@example.com", Password: "secret1", Role: "Admin "})
	s.AddUser(User{ID: "u-user", Name: "Bob", Email: "bob@example.com", Password: "secret1", Role: "user"})
	mains := s.AddCategory(Category{ID: "c-mains", Name: "Mains"})
	special := s.AddCategory(Category{ID: "c-special", Name: "Special Dishes"})
	return []Product{
		s.AddProduct(Product{ID: "p1", Name: "Burger", Description: "Beef", Price: dec("10.00"), Stock: 10, CategoryID: mains.ID}),
		s.AddProduct(Product{ID: "p2", Name: "Soup", Description: "Tomato", Price: dec("5.50"), Stock: 3, CategoryID: mains.ID}),
		s.AddProduct(Product{ID: "p3", Name: "Lobster", Description: "Fresh", Price: dec("20.00"), DiscountPercent: dec("25"), Stock: 2, CategoryID: special.ID, Featured: true}),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

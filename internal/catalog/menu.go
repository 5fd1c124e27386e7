// Package catalog serves the public menu and the admin product and order screens.
package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/restaurant-client/internal/model"
)

// Uncategorized names the group of products without a category.
const Uncategorized = "Uncategorized"

// Defaults for the featured strip.
const (
	DefaultFeaturedCategory = "Special Dishes"
	DefaultFeaturedLimit    = 4
)

// API is the public catalog backend.
type API interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// Group is one menu section.
type Group struct {
	Category string          `json:"category"`
	Products []model.Product `json:"products"`
}

// Options configures the featured strip.
type Options struct {
	FeaturedCategory string
	FeaturedLimit    int
}

// Service reads the public catalog.
type Service struct {
	api  API
	opts Options
	log  *zap.Logger
}

// New builds a Service, filling zero options with defaults.
func New(a API, opts Options, log *zap.Logger) *Service {
	if opts.FeaturedCategory == "" {
		opts.FeaturedCategory = DefaultFeaturedCategory
	}
	if opts.FeaturedLimit <= 0 {
		opts.FeaturedLimit = DefaultFeaturedLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: a, opts: opts, log: log.Named("catalog")}
}

// Menu lists products grouped by category name in first-seen order. A non-empty
// category keeps only that group.
func (s *Service) Menu(ctx context.Context, category string) ([]Group, error) {
	ps, err := s.api.ListProducts(ctx)
	if err != nil {
		s.log.Warn("list products failed", zap.Error(err))
		return nil, err
	}
	groups := GroupByCategory(ps)
	if category == "" {
		return groups, nil
	}
	for _, g := range groups {
		if g.Category == category {
			return []Group{g}, nil
		}
	}
	return []Group{}, nil
}

// GroupByCategory buckets products by category name preserving first-seen order.
func GroupByCategory(ps []model.Product) []Group {
	idx := map[string]int{}
	groups := []Group{}
	for _, p := range ps {
		name := p.Category.Name
		if name == "" {
			name = Uncategorized
		}
		i, ok := idx[name]
		if !ok {
			i = len(groups)
			idx[name] = i
			groups = append(groups, Group{Category: name})
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
}

// Featured returns up to the configured limit of products from the featured
// category, or from the whole catalog when that category is empty.
func (s *Service) Featured(ctx context.Context) ([]model.Product, error) {
	ps, err := s.api.ListProducts(ctx)
	if err != nil {
		s.log.Warn("list products failed", zap.Error(err))
		return nil, err
	}
	return pickFeatured(ps, s.opts.FeaturedCategory, s.opts.FeaturedLimit), nil
}

func pickFeatured(ps []model.Product, category string, limit int) []model.Product {
	src := make([]model.Product, 0, len(ps))
	for _, p := range ps {
		if p.Category.Name == category {
			src = append(src, p)
		}
	}
	if len(src) == 0 {
		src = append(src, ps...)
	}
	if len(src) > limit {
		src = src[:limit]
	}
	return src
}

// Product fetches one product.
func (s *Service) Product(ctx context.Context, id string) (model.Product, error) {
	return s.api.GetProduct(ctx, id)
}

// Categories lists categories for product forms.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	return s.api.ListCategories(ctx)
}

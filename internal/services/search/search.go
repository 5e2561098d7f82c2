package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/models"
)

const (
	// MinSuggestionLength is the shortest query that produces suggestions
	MinSuggestionLength = 2
	// SuggestionLimit caps stores and products separately
	SuggestionLimit = 5
)

// Suggestion types
const (
	TypeStore   = "store"
	TypeProduct = "product"
)

// Catalog is the read side of storage the search needs
type Catalog interface {
	ListStores(ctx context.Context) ([]models.Store, error)
	ListInventory(ctx context.Context, storeID string, filter models.InventoryFilter) ([]models.InventoryItem, error)
}

// Product is an inventory match with the name of the store holding it
type Product struct {
	models.InventoryItem
	StoreName string `json:"store_name"`
}

// Results holds stores and products whose names contain the query
type Results struct {
	Query    string         `json:"query"`
	Stores   []models.Store `json:"stores"`
	Products []Product      `json:"products"`
}

// Suggestion is one entry of the type-ahead list
type Suggestion struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	StoreID   string `json:"store_id,omitempty"`
	StoreName string `json:"store_name,omitempty"`
}

// Service searches stores and inventory by name
type Service struct {
	catalog Catalog
	logger  *logrus.Logger
}

// NewService creates a search service
func NewService(catalog Catalog, logger *logrus.Logger) *Service {
	return &Service{catalog: catalog, logger: logger}
}

// Search returns every store and product whose name contains query,
// case-insensitively, each ordered by name. A blank query matches nothing.
func (s *Service) Search(ctx context.Context, query string) (*Results, error) {
	query = strings.TrimSpace(query)
	results := &Results{Query: query, Stores: []models.Store{}, Products: []Product{}}
	if query == "" {
		return results, nil
	}

	stores, products, err := s.match(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	results.Stores = stores
	results.Products = products

	s.logger.WithFields(logrus.Fields{
		"query":    query,
		"stores":   len(stores),
		"products": len(products),
	}).Debug("Search completed")
	return results, nil
}

// Suggestions returns up to SuggestionLimit stores followed by up to
// SuggestionLimit products. Queries shorter than MinSuggestionLength
// return an empty list.
func (s *Service) Suggestions(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	suggestions := []Suggestion{}
	if len([]rune(query)) < MinSuggestionLength {
		return suggestions, nil
	}

	stores, products, err := s.match(ctx, query, SuggestionLimit)
	if err != nil {
		return nil, err
	}
	for _, store := range stores {
		suggestions = append(suggestions, Suggestion{ID: store.ID, Name: store.Name, Type: TypeStore})
	}
	for _, p := range products {
		suggestions = append(suggestions, Suggestion{
			ID:        p.ID,
			Name:      p.Name,
			Type:      TypeProduct,
			StoreID:   p.StoreID,
			StoreName: p.StoreName,
		})
	}
	return suggestions, nil
}

func (s *Service) match(ctx context.Context, query string, limit int) ([]models.Store, []Product, error) {
	all, err := s.catalog.ListStores(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("search stores: %w", err)
	}

	needle := strings.ToLower(query)
	stores := []models.Store{}
	products := []Product{}
	for _, store := range all {
		if strings.Contains(strings.ToLower(store.Name), needle) {
			stores = append(stores, store)
		}

		items, err := s.catalog.ListInventory(ctx, store.ID, models.InventoryFilter{NameContains: query})
		if err != nil {
			return nil, nil, fmt.Errorf("search inventory of %s: %w", store.ID, err)
		}
		for _, item := range items {
			products = append(products, Product{InventoryItem: item, StoreName: store.Name})
		}
	}

	sort.SliceStable(stores, func(i, j int) bool {
		return strings.ToLower(stores[i].Name) < strings.ToLower(stores[j].Name)
	})
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})

	if limit > 0 {
		if len(stores) > limit {
			stores = stores[:limit]
		}
		if len(products) > limit {
			products = products[:limit]
		}
	}
	return stores, products, nil
}

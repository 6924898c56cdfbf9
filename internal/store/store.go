// Package store reads customers, regions and the product catalog that the
// HTTP and Kafka entry points turn into pipeline input.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campaign-engine/internal/model"
)

// ErrNotFound is returned when a customer or region does not exist.
var ErrNotFound = errors.New("not found")

// Customer is a stored customer with its per-product purchase history.
type Customer struct {
	CustomerID     string                  `json:"customerId" bson:"customerId"`
	TenantID       string                  `json:"tenantId,omitempty" bson:"tenantId,omitempty"`
	Age            *int                    `json:"age,omitempty" bson:"age,omitempty"`
	Gender         string                  `json:"gender,omitempty" bson:"gender,omitempty"`
	City           string                  `json:"city" bson:"city"`
	RegisteredAt   string                  `json:"registeredAt,omitempty" bson:"registeredAt,omitempty"`
	ProductHistory []model.PurchaseHistory `json:"productHistory" bson:"productHistory"`
}

// Repository is implemented by the file and Mongo backends.
type Repository interface {
	ListCustomers(ctx context.Context, limit, offset int) ([]Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	RegionForCity(ctx context.Context, city string) (*model.Region, error)
	Products(ctx context.Context, tenantID string, limit int) ([]model.Product, error)
	Orders(ctx context.Context, tenantID string, since time.Time) ([]model.Order, error)
	Climate(ctx context.Context) (map[string]model.Climate, error)
	Close(ctx context.Context) error
}

// Defaults fill in what the store cannot provide.
type Defaults struct {
	Region      model.Region
	TenantID    string
	MaxProducts int
}

// CustomerData assembles segmentation input for a stored customer. Customers
// in a city without a region get the default region.
func CustomerData(ctx context.Context, repo Repository, customerID string, d Defaults) (*model.CustomerData, error) {
	c, err := repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", customerID, err)
	}

	region, err := repo.RegionForCity(ctx, c.City)
	switch {
	case errors.Is(err, ErrNotFound):
		def := d.Region
		region = &def
	case err != nil:
		return nil, fmt.Errorf("region for %s: %w", c.City, err)
	}

	history := c.ProductHistory
	if history == nil {
		history = []model.PurchaseHistory{}
	}
	return &model.CustomerData{
		CustomerID: c.CustomerID,
		City:       c.City,
		Customer: model.CustomerRecord{
			CustomerID:     c.CustomerID,
			Age:            c.Age,
			Gender:         c.Gender,
			RegisteredAt:   c.RegisteredAt,
			ProductHistory: history,
		},
		Region: *region,
	}, nil
}

// ProductData assembles product-analysis input: up to maxProducts catalog
// entries, the last 30 days of orders and the climate table.
func ProductData(ctx context.Context, repo Repository, tenantID string, maxProducts int, now time.Time) (*model.ProductData, error) {
	products, err := repo.Products(ctx, tenantID, maxProducts)
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	orders, err := repo.Orders(ctx, tenantID, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	climate, err := repo.Climate(ctx)
	if err != nil {
		return nil, fmt.Errorf("climate: %w", err)
	}
	return &model.ProductData{
		TenantID:     tenantID,
		Products:     products,
		OrderHistory: orders,
		CurrentMonth: int(now.Month()),
		ClimateData:  climate,
	}, nil
}

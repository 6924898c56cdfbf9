package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campaign-engine/internal/logger"
	"campaign-engine/internal/model"
	"campaign-engine/internal/segmentation"
)

// Collection names.
const (
	colCustomers = "customers"
	colRegions   = "regions"
	colProducts  = "products"
	colOrders    = "orders"
	colClimate   = "climate"
)

// MongoStore reads the same collections as FileStore from MongoDB.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects and pings before returning.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo connection URI is empty")
	}
	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Get("store").WithField("db", dbName).Info("Store: connected to MongoDB")
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

func (s *MongoStore) ListCustomers(ctx context.Context, limit, offset int) ([]Customer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "customerId", Value: 1}}).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return find[Customer](ctx, s.db.Collection(colCustomers), bson.M{}, opts)
}

func (s *MongoStore) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var c Customer
	err := s.db.Collection(colCustomers).FindOne(ctx, bson.M{"customerId": customerID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return &c, nil
}

func (s *MongoStore) RegionForCity(ctx context.Context, city string) (*model.Region, error) {
	var r model.Region
	err := s.db.Collection(colRegions).FindOne(ctx, bson.M{"cities": city}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find region: %w", err)
	}
	return &r, nil
}

func (s *MongoStore) Products(ctx context.Context, tenantID string, limit int) ([]model.Product, error) {
	filter := bson.M{}
	if tenantID != "" {
		filter["tenantId"] = tenantID
	}
	opts := options.Find().SetSort(bson.D{{Key: "last30DaysSales", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return find[model.Product](ctx, s.db.Collection(colProducts), filter, opts)
}

// Orders filters by date in Go because stored dates are ISO strings of mixed precision.
func (s *MongoStore) Orders(ctx context.Context, tenantID string, since time.Time) ([]model.Order, error) {
	filter := bson.M{"date": bson.M{"$gte": since.Format("2006-01-02")}}
	if tenantID != "" {
		filter["tenantId"] = tenantID
	}
	all, err := find[model.Order](ctx, s.db.Collection(colOrders), filter, options.Find())
	if err != nil {
		return nil, err
	}
	out := []model.Order{}
	for _, o := range all {
		if t, err := segmentation.ParseTimestamp(o.Date); err == nil && !t.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *MongoStore) Climate(ctx context.Context) (map[string]model.Climate, error) {
	all, err := find[model.Climate](ctx, s.db.Collection(colClimate), bson.M{}, options.Find())
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Climate, len(all))
	for _, c := range all {
		out[c.City] = c
	}
	return out, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func find[T any](ctx context.Context, col *mongo.Collection, filter any, opts *options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", col.Name(), err)
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", col.Name(), err)
	}
	return out, nil
}

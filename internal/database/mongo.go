package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ecommerce-dashboard/internal/dataset"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoDatabase = "dashboard"

type MongoDriver struct {
	client *mongo.Client
	db     *mongo.Database
}

// Order items are embedded in their order document. Amounts are stored as
// decimal strings.
type orderDoc struct {
	ID                string    `bson:"_id"`
	CustomerID        string    `bson:"customer_id"`
	Status            string    `bson:"status"`
	PurchaseTimestamp time.Time `bson:"purchase_timestamp"`
	Items             []itemDoc `bson:"items"`
}

type itemDoc struct {
	Seq          int    `bson:"seq"`
	ProductID    string `bson:"product_id"`
	SellerID     string `bson:"seller_id"`
	Price        string `bson:"price"`
	FreightValue string `bson:"freight_value"`
}

type productDoc struct {
	ID       string `bson:"_id"`
	Category string `bson:"category"`
}

type customerDoc struct {
	ID            string `bson:"_id"`
	UniqueID      string `bson:"unique_id"`
	ZipCodePrefix string `bson:"zip_code_prefix"`
	City          string `bson:"city"`
	State         string `bson:"state"`
}

type sellerDoc struct {
	ID            string `bson:"_id"`
	ZipCodePrefix string `bson:"zip_code_prefix"`
	City          string `bson:"city"`
	State         string `bson:"state"`
}

type geolocationDoc struct {
	ZipCodePrefix string  `bson:"zip_code_prefix"`
	Lat           float64 `bson:"lat"`
	Lng           float64 `bson:"lng"`
	City          string  `bson:"city"`
	State         string  `bson:"state"`
}

// One review_id can cover several orders, so the review is not its own key.
type reviewDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	ReviewID string             `bson:"review_id"`
	OrderID  string             `bson:"order_id"`
	Score    int                `bson:"score"`
}

func (md *MongoDriver) Connect(ctx context.Context, dsn string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return err
	}
	md.client = client
	md.db = client.Database(mongoDatabaseName(dsn))
	return nil
}

func (md *MongoDriver) Close() error {
	return md.client.Disconnect(context.Background())
}

func (md *MongoDriver) ExecuteTx(ctx context.Context, txFunc func(interface{}) error) error {
	session, err := md.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if err := txFunc(sessCtx); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (md *MongoDriver) Load(ctx context.Context) (*dataset.Tables, error) {
	t := &dataset.Tables{}
	byID := bson.D{{Key: "_id", Value: 1}}

	orders, err := findAll[orderDoc](ctx, md.db.Collection("orders"), byID)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	for _, o := range orders {
		t.Orders = append(t.Orders, dataset.Order{
			OrderID:           o.ID,
			CustomerID:        o.CustomerID,
			Status:            o.Status,
			PurchaseTimestamp: o.PurchaseTimestamp.UTC(),
		})
		for _, it := range o.Items {
			item := dataset.OrderItem{OrderID: o.ID, ItemSeq: it.Seq, ProductID: it.ProductID, SellerID: it.SellerID}
			if item.Price, err = decimal.NewFromString(it.Price); err != nil {
				return nil, fmt.Errorf("order %s item %d: price: %w", o.ID, it.Seq, err)
			}
			if item.FreightValue, err = decimal.NewFromString(it.FreightValue); err != nil {
				return nil, fmt.Errorf("order %s item %d: freight: %w", o.ID, it.Seq, err)
			}
			t.OrderItems = append(t.OrderItems, item)
		}
	}

	products, err := findAll[productDoc](ctx, md.db.Collection("products"), byID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, p := range products {
		t.Products = append(t.Products, dataset.Product{ProductID: p.ID, Category: p.Category})
	}

	customers, err := findAll[customerDoc](ctx, md.db.Collection("customers"), byID)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	for _, c := range customers {
		t.Customers = append(t.Customers, dataset.Customer{
			CustomerID:       c.ID,
			CustomerUniqueID: c.UniqueID,
			ZipCodePrefix:    c.ZipCodePrefix,
			City:             c.City,
			State:            c.State,
		})
	}

	sellers, err := findAll[sellerDoc](ctx, md.db.Collection("sellers"), byID)
	if err != nil {
		return nil, fmt.Errorf("load sellers: %w", err)
	}
	for _, s := range sellers {
		t.Sellers = append(t.Sellers, dataset.Seller{SellerID: s.ID, ZipCodePrefix: s.ZipCodePrefix, City: s.City, State: s.State})
	}

	geo, err := findAll[geolocationDoc](ctx, md.db.Collection("geolocation"), bson.D{{Key: "$natural", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("load geolocation: %w", err)
	}
	for _, g := range geo {
		t.Geolocation = append(t.Geolocation, dataset.Geolocation(g))
	}

	byReview := bson.D{{Key: "review_id", Value: 1}, {Key: "order_id", Value: 1}}
	reviews, err := findAll[reviewDoc](ctx, md.db.Collection("reviews"), byReview)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	for _, r := range reviews {
		t.Reviews = append(t.Reviews, dataset.Review{ReviewID: r.ReviewID, OrderID: r.OrderID, Score: r.Score})
	}

	return t, nil
}

func (md *MongoDriver) Seed(ctx context.Context, tables *dataset.Tables) error {
	return md.ExecuteTx(ctx, func(tx interface{}) error {
		sessCtx, ok := tx.(mongo.SessionContext)
		if !ok {
			return fmt.Errorf("unsupported transaction type: %T", tx)
		}
		return md.seed(sessCtx, tables)
	})
}

func (md *MongoDriver) seed(ctx mongo.SessionContext, t *dataset.Tables) error {
	for _, name := range []string{"orders", "products", "customers", "sellers", "geolocation", "reviews"} {
		if _, err := md.db.Collection(name).DeleteMany(ctx, bson.D{}); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}

	if err := insertAll(ctx, md.db.Collection("orders"), orderDocs(t)); err != nil {
		return fmt.Errorf("insert orders: %w", err)
	}

	products := make([]productDoc, len(t.Products))
	for i, p := range t.Products {
		products[i] = productDoc{ID: p.ProductID, Category: p.Category}
	}
	if err := insertAll(ctx, md.db.Collection("products"), products); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}

	customers := make([]customerDoc, len(t.Customers))
	for i, c := range t.Customers {
		customers[i] = customerDoc{ID: c.CustomerID, UniqueID: c.CustomerUniqueID, ZipCodePrefix: c.ZipCodePrefix, City: c.City, State: c.State}
	}
	if err := insertAll(ctx, md.db.Collection("customers"), customers); err != nil {
		return fmt.Errorf("insert customers: %w", err)
	}

	sellers := make([]sellerDoc, len(t.Sellers))
	for i, s := range t.Sellers {
		sellers[i] = sellerDoc{ID: s.SellerID, ZipCodePrefix: s.ZipCodePrefix, City: s.City, State: s.State}
	}
	if err := insertAll(ctx, md.db.Collection("sellers"), sellers); err != nil {
		return fmt.Errorf("insert sellers: %w", err)
	}

	geo := make([]geolocationDoc, len(t.Geolocation))
	for i, g := range t.Geolocation {
		geo[i] = geolocationDoc(g)
	}
	if err := insertAll(ctx, md.db.Collection("geolocation"), geo); err != nil {
		return fmt.Errorf("insert geolocation: %w", err)
	}

	reviews := make([]reviewDoc, len(t.Reviews))
	for i, r := range t.Reviews {
		reviews[i] = reviewDoc{ReviewID: r.ReviewID, OrderID: r.OrderID, Score: r.Score}
	}
	if err := insertAll(ctx, md.db.Collection("reviews"), reviews); err != nil {
		return fmt.Errorf("insert reviews: %w", err)
	}
	return nil
}

// orderDocs nests every item under its order. Items whose order is missing
// are dropped, as the inner join downstream would drop them anyway.
func orderDocs(t *dataset.Tables) []orderDoc {
	docs := make([]orderDoc, len(t.Orders))
	index := make(map[string]int, len(t.Orders))
	for i, o := range t.Orders {
		docs[i] = orderDoc{
			ID:                o.OrderID,
			CustomerID:        o.CustomerID,
			Status:            o.Status,
			PurchaseTimestamp: o.PurchaseTimestamp.UTC(),
			Items:             []itemDoc{},
		}
		index[o.OrderID] = i
	}
	for _, it := range t.OrderItems {
		i, ok := index[it.OrderID]
		if !ok {
			continue
		}
		docs[i].Items = append(docs[i].Items, itemDoc{
			Seq:          it.ItemSeq,
			ProductID:    it.ProductID,
			SellerID:     it.SellerID,
			Price:        it.Price.String(),
			FreightValue: it.FreightValue.String(),
		})
	}
	return docs
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, sort bson.D) ([]T, error) {
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func insertAll[T any](ctx context.Context, coll *mongo.Collection, docs []T) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}
	_, err := coll.InsertMany(ctx, batch)
	return err
}

// mongoDatabaseName takes the database from the URI path, e.g.
// mongodb://host:27017/olist?replicaSet=rs0 gives "olist".
func mongoDatabaseName(uri string) string {
	rest := uri
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return defaultMongoDatabase
	}
	name := rest[i+1:]
	if j := strings.IndexByte(name, '?'); j >= 0 {
		name = name[:j]
	}
	if name == "" {
		return defaultMongoDatabase
	}
	return name
}

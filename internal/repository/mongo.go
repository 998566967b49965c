package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

const (
	productsCollection  = "products"
	addressesCollection = "addresses"
	ordersCollection    = "orders"

	defaultMongoDatabase = "dairy"
)

type mongoProduct struct {
	ID    primitive.ObjectID   `bson:"_id,omitempty"`
	Name  string               `bson:"name"`
	Unit  string               `bson:"unit,omitempty"`
	Price primitive.Decimal128 `bson:"price"`
	Stock int64                `bson:"stock"`
}

type mongoAddress struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Phone         string             `bson:"phone"`
	AddressType   string             `bson:"addressType"`
	StreetAddress string             `bson:"streetAddress"`
	City          string             `bson:"city"`
	State         string             `bson:"state"`
	Pincode       string             `bson:"pincode"`
}

type mongoOrderItem struct {
	ProductID primitive.ObjectID   `bson:"productId"`
	Quantity  int64                `bson:"productQuantity"`
	Price     primitive.Decimal128 `bson:"productPrice"`
}

type mongoGateway struct {
	PaymentID string `bson:"paymentId"`
	OrderID   string `bson:"orderId"`
}

type mongoOrder struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Address     primitive.ObjectID `bson:"address"`
	Items       []mongoOrderItem   `bson:"productsData"`
	Status      string             `bson:"status"`
	PaymentMode string             `bson:"paymentMode"`
	Razorpay    *mongoGateway      `bson:"razorpay,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// addressProjection is the set of address fields a receipt reads.
var addressProjection = bson.M{
	"name": 1, "phone": 1, "addressType": 1, "streetAddress": 1,
	"city": 1, "state": 1, "pincode": 1,
}

// OpenMongo connects to uri and returns a Store over database.
func OpenMongo(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo store requires a connection url")
	}
	if database == "" {
		database = defaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	db := client.Database(database)
	orders := &MongoOrders{db: db}
	return &Store{
		Products:  &MongoProducts{coll: db.Collection(productsCollection)},
		Addresses: &MongoAddresses{coll: db.Collection(addressesCollection)},
		Orders:    orders,
		Receipts:  orders,
		Tx:        &MongoTx{client: client},
		close:     client.Disconnect,
	}, nil
}

// objectID parses a hex id. Malformed ids cannot exist in the store, so
// they are reported as ErrNotFound.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode decimal %s: %w", v, err)
	}
	return d, nil
}

func mongoNow() time.Time {
	// BSON dates carry millisecond precision
	return time.Now().UTC().Truncate(time.Millisecond)
}

type MongoProducts struct{ coll *mongo.Collection }

var _ ProductRepository = (*MongoProducts)(nil)

func (r *MongoProducts) toDoc(p *domain.Product) (mongoProduct, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return mongoProduct{}, err
	}
	return mongoProduct{Name: p.Name, Unit: p.Unit, Price: price, Stock: p.Stock}, nil
}

func (r *MongoProducts) fromDoc(doc mongoProduct) (*domain.Product, error) {
	price, err := fromDecimal128(doc.Price)
	if err != nil {
		return nil, err
	}
	return &domain.Product{ID: doc.ID.Hex(), Name: doc.Name, Unit: doc.Unit, Price: price, Stock: doc.Stock}, nil
}

func (r *MongoProducts) Create(ctx context.Context, p *domain.Product) error {
	doc, err := r.toDoc(p)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	p.ID = doc.ID.Hex()
	return nil
}

func (r *MongoProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc mongoProduct
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return r.fromDoc(doc)
}

func (r *MongoProducts) Update(ctx context.Context, p *domain.Product) error {
	oid, err := objectID(p.ID)
	if err != nil {
		return err
	}
	doc, err := r.toDoc(p)
	if err != nil {
		return err
	}
	doc.ID = oid
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProducts) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	filter, err := mongoProductFilter(f)
	if err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]domain.Product, 0)
	for cur.Next(ctx) {
		var doc mongoProduct
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		p, err := r.fromDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return out, nil
}

func mongoProductFilter(f ProductFilter) (bson.M, error) {
	filter := bson.M{}
	if f.NameSubstring != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.NameSubstring), Options: "i"}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		v, err := toDecimal128(*f.MinPrice)
		if err != nil {
			return nil, err
		}
		price["$gte"] = v
	}
	if f.MaxPrice != nil {
		v, err := toDecimal128(*f.MaxPrice)
		if err != nil {
			return nil, err
		}
		price["$lte"] = v
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter, nil
}

type MongoAddresses struct{ coll *mongo.Collection }

var _ AddressRepository = (*MongoAddresses)(nil)

func (r *MongoAddresses) Create(ctx context.Context, a *domain.Address) error {
	doc := mongoAddress{
		ID:            primitive.NewObjectID(),
		Name:          a.Name,
		Phone:         a.Phone,
		AddressType:   a.AddressType,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		Pincode:       a.Pincode,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert address: %w", err)
	}
	a.ID = doc.ID.Hex()
	return nil
}

func (r *MongoAddresses) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return findAddress(ctx, r.coll, oid)
}

func findAddress(ctx context.Context, coll *mongo.Collection, oid primitive.ObjectID) (*domain.Address, error) {
	var doc mongoAddress
	err := coll.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(addressProjection)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	return &domain.Address{
		ID:            doc.ID.Hex(),
		Name:          doc.Name,
		Phone:         doc.Phone,
		AddressType:   doc.AddressType,
		StreetAddress: doc.StreetAddress,
		City:          doc.City,
		State:         doc.State,
		Pincode:       doc.Pincode,
	}, nil
}

// MongoOrders stores orders in the orders collection and resolves the
// receipt joins the way a populate would: one query per referenced
// collection.
type MongoOrders struct{ db *mongo.Database }

var (
	_ OrderRepository = (*MongoOrders)(nil)
	_ ReceiptReader   = (*MongoOrders)(nil)
)

func (r *MongoOrders) coll() *mongo.Collection { return r.db.Collection(ordersCollection) }

func orderToDoc(o *domain.Order) (mongoOrder, error) {
	addr, err := objectID(o.AddressID)
	if err != nil {
		return mongoOrder{}, fmt.Errorf("invalid address id %q: %w", o.AddressID, err)
	}
	doc := mongoOrder{
		Address:     addr,
		Items:       make([]mongoOrderItem, 0, len(o.Items)),
		Status:      string(o.Status),
		PaymentMode: string(o.PaymentMode),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Gateway != nil {
		doc.Razorpay = &mongoGateway{PaymentID: o.Gateway.PaymentID, OrderID: o.Gateway.OrderID}
	}
	for _, it := range o.Items {
		pid, err := objectID(it.ProductID)
		if err != nil {
			return mongoOrder{}, fmt.Errorf("invalid product id %q: %w", it.ProductID, err)
		}
		price, err := toDecimal128(it.Price)
		if err != nil {
			return mongoOrder{}, err
		}
		doc.Items = append(doc.Items, mongoOrderItem{ProductID: pid, Quantity: it.Quantity, Price: price})
	}
	return doc, nil
}

func orderFromDoc(doc mongoOrder) (*domain.Order, error) {
	o := &domain.Order{
		ID:          doc.ID.Hex(),
		AddressID:   doc.Address.Hex(),
		Items:       make([]domain.OrderItem, 0, len(doc.Items)),
		Status:      domain.OrderStatus(doc.Status),
		PaymentMode: domain.PaymentMode(doc.PaymentMode),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if doc.Razorpay != nil {
		o.Gateway = &domain.GatewayRef{PaymentID: doc.Razorpay.PaymentID, OrderID: doc.Razorpay.OrderID}
	}
	for _, it := range doc.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, domain.OrderItem{ProductID: it.ProductID.Hex(), Quantity: it.Quantity, Price: price})
	}
	return o, nil
}

func (r *MongoOrders) Create(ctx context.Context, o *domain.Order) error {
	o.CreatedAt = mongoNow()
	o.UpdatedAt = o.CreatedAt
	doc, err := orderToDoc(o)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	o.ID = doc.ID.Hex()
	return nil
}

func (r *MongoOrders) find(ctx context.Context, id string) (*mongoOrder, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc mongoOrder
	if err := r.coll().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &doc, nil
}

func (r *MongoOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	doc, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return orderFromDoc(*doc)
}

func (r *MongoOrders) Update(ctx context.Context, o *domain.Order) error {
	oid, err := objectID(o.ID)
	if err != nil {
		return err
	}
	o.UpdatedAt = mongoNow()
	doc, err := orderToDoc(o)
	if err != nil {
		return err
	}
	set := bson.M{
		"address":      doc.Address,
		"productsData": doc.Items,
		"status":       doc.Status,
		"paymentMode":  doc.PaymentMode,
		"updatedAt":    doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if doc.Razorpay != nil {
		set["razorpay"] = doc.Razorpay
	} else {
		update["$unset"] = bson.M{"razorpay": ""}
	}
	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrders) GetReceiptOrder(ctx context.Context, id string) (*domain.ReceiptOrder, error) {
	doc, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	o, err := orderFromDoc(*doc)
	if err != nil {
		return nil, err
	}

	ro := &domain.ReceiptOrder{
		ID:          o.ID,
		Status:      o.Status,
		PaymentMode: o.PaymentMode,
		Gateway:     o.Gateway,
		CreatedAt:   o.CreatedAt,
		Items:       make([]domain.ReceiptItem, 0, len(o.Items)),
	}

	addr, err := findAddress(ctx, r.db.Collection(addressesCollection), doc.Address)
	switch {
	case err == nil:
		ro.Address = addr
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	names, err := r.productNames(ctx, doc.Items)
	if err != nil {
		return nil, err
	}
	for _, it := range o.Items {
		ri := domain.ReceiptItem{ProductID: it.ProductID, Price: it.Price, Quantity: it.Quantity}
		if name, ok := names[it.ProductID]; ok {
			ri.Product = &domain.ProductSummary{Name: name}
		}
		ro.Items = append(ro.Items, ri)
	}
	return ro, nil
}

func (r *MongoOrders) productNames(ctx context.Context, items []mongoOrderItem) (map[string]string, error) {
	names := make(map[string]string, len(items))
	if len(items) == 0 {
		return names, nil
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	cur, err := r.db.Collection(productsCollection).Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load order products: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()
	for cur.Next(ctx) {
		var p struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		names[p.ID.Hex()] = p.Name
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to load order products: %w", err)
	}
	return names, nil
}

// MongoTx runs fn in a multi-document transaction. It needs a replica set.
type MongoTx struct{ client *mongo.Client }

func (t *MongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

func TestObjectID(t *testing.T) {
	_, err := objectID("not-a-hex-id")
	assert.True(t, errors.Is(err, ErrNotFound))

	oid := primitive.NewObjectID()
	got, err := objectID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)
}

func TestDecimal128(t *testing.T) {
	for _, s := range []string{"0", "35.50", "1234567.89", "0.10"} {
		v, err := toDecimal128(dec(s))
		require.NoError(t, err)
		back, err := fromDecimal128(v)
		require.NoError(t, err)
		assert.True(t, back.Equal(dec(s)), "%s came back as %s", s, back)
	}
}

func TestMongoProductFilter(t *testing.T) {
	f, err := mongoProductFilter(ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, f)

	min, max := dec("10"), dec("99.99")
	f, err = mongoProductFilter(ProductFilter{NameSubstring: "a.b", MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)

	assert.Equal(t, primitive.Regex{Pattern: `a\.b`, Options: "i"}, f["name"])
	price, ok := f["price"].(bson.M)
	require.True(t, ok)
	assert.Contains(t, price, "$gte")
	assert.Contains(t, price, "$lte")
}

func TestMongoOrderDoc(t *testing.T) {
	in := &domain.Order{
		ID:          primitive.NewObjectID().Hex(),
		AddressID:   primitive.NewObjectID().Hex(),
		Items:       []domain.OrderItem{{ProductID: primitive.NewObjectID().Hex(), Quantity: 2, Price: dec("60.00")}},
		Status:      domain.OrderStatusShipped,
		PaymentMode: domain.PaymentModeOnline,
		Gateway:     &domain.GatewayRef{PaymentID: "pay_1", OrderID: "order_1"},
		CreatedAt:   time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC),
	}

	doc, err := orderToDoc(in)
	require.NoError(t, err)
	require.NotNil(t, doc.Razorpay)
	assert.Equal(t, "pay_1", doc.Razorpay.PaymentID)
	assert.True(t, doc.ID.IsZero())

	doc.ID, _ = primitive.ObjectIDFromHex(in.ID)
	out, err := orderFromDoc(doc)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Items[0].ProductID, out.Items[0].ProductID)
	assert.True(t, out.Items[0].Price.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, in.Gateway, out.Gateway)
	assert.Equal(t, in.Status, out.Status)

	_, err = orderToDoc(&domain.Order{AddressID: "bad"})
	assert.Error(t, err)
}

func TestProductListQuery(t *testing.T) {
	q, args := productListQuery(ProductFilter{})
	assert.Equal(t, `SELECT id, name, unit, price::text, stock FROM products ORDER BY name`, q)
	assert.Empty(t, args)

	min, max := dec("10"), dec("20.5")
	q, args = productListQuery(ProductFilter{NameSubstring: "milk", MinPrice: &min, MaxPrice: &max})
	assert.Equal(t,
		`SELECT id, name, unit, price::text, stock FROM products WHERE name ILIKE $1 AND price >= $2::numeric AND price <= $3::numeric ORDER BY name`,
		q)
	assert.Equal(t, []any{"%milk%", "10", "20.5"}, args)
}

func TestGatewayColumns(t *testing.T) {
	p, o := gatewayColumns(nil)
	assert.Nil(t, p)
	assert.Nil(t, o)
	assert.Nil(t, gatewayFromColumns(nil, nil))

	g := &domain.GatewayRef{PaymentID: "pay_1", OrderID: "order_1"}
	assert.Equal(t, g, gatewayFromColumns(gatewayColumns(g)))
}

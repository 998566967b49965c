package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	unit  TEXT NOT NULL DEFAULT '',
	price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
	stock BIGINT NOT NULL CHECK (stock >= 0)
);

CREATE TABLE IF NOT EXISTS addresses (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	phone          TEXT NOT NULL,
	address_type   TEXT NOT NULL,
	street_address TEXT NOT NULL,
	city           TEXT NOT NULL,
	state          TEXT NOT NULL,
	pincode        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id                 TEXT PRIMARY KEY,
	address_id         TEXT NOT NULL,
	status             TEXT NOT NULL,
	payment_mode       TEXT NOT NULL,
	gateway_payment_id TEXT,
	gateway_order_id   TEXT,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id   TEXT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	position   INT NOT NULL,
	product_id TEXT NOT NULL,
	quantity   BIGINT NOT NULL CHECK (quantity > 0),
	price      NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
	PRIMARY KEY (order_id, position)
);
`

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type pgTxKey struct{}

// Postgres is the shared handle of the postgres repositories.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL, applies the schema and returns a Store.
func OpenPostgres(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres store requires a connection url")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	pg := &Postgres{pool: pool}
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	orders := &PostgresOrders{pg: pg}
	return &Store{
		Products:  &PostgresProducts{pg: pg},
		Addresses: &PostgresAddresses{pg: pg},
		Orders:    orders,
		Receipts:  orders,
		Tx:        pg,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

// Migrate creates the tables if they do not exist yet.
func (pg *Postgres) Migrate(ctx context.Context) error {
	if _, err := pg.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (pg *Postgres) db(ctx context.Context) dbtx {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return pg.pool
}

func inPgTx(ctx context.Context) bool {
	_, ok := ctx.Value(pgTxKey{}).(pgx.Tx)
	return ok
}

func (pg *Postgres) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inPgTx(ctx) {
		return fn(ctx)
	}
	tx, err := pg.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func parseNumeric(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse numeric %q: %w", s, err)
	}
	return d, nil
}

func noRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

type PostgresProducts struct{ pg *Postgres }

var _ ProductRepository = (*PostgresProducts)(nil)

func (r *PostgresProducts) Create(ctx context.Context, p *domain.Product) error {
	id := uuid.NewString()
	_, err := r.pg.db(ctx).Exec(ctx,
		`INSERT INTO products (id, name, unit, price, stock) VALUES ($1, $2, $3, $4::numeric, $5)`,
		id, p.Name, p.Unit, p.Price.String(), p.Stock)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	p.ID = id
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Unit, &price, &p.Stock); err != nil {
		return nil, err
	}
	d, err := parseNumeric(price)
	if err != nil {
		return nil, err
	}
	p.Price = d
	return &p, nil
}

func (r *PostgresProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT id, name, unit, price::text, stock FROM products WHERE id = $1`
	if inPgTx(ctx) {
		// stock is read-modify-written inside order transactions
		q += ` FOR UPDATE`
	}
	p, err := scanProduct(r.pg.db(ctx).QueryRow(ctx, q, id))
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return p, nil
}

func (r *PostgresProducts) Update(ctx context.Context, p *domain.Product) error {
	tag, err := r.pg.db(ctx).Exec(ctx,
		`UPDATE products SET name = $2, unit = $3, price = $4::numeric, stock = $5 WHERE id = $1`,
		p.ID, p.Name, p.Unit, p.Price.String(), p.Stock)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresProducts) Delete(ctx context.Context, id string) error {
	tag, err := r.pg.db(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// productListQuery builds the listing statement for f.
func productListQuery(f ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.NameSubstring != "" {
		args = append(args, "%"+f.NameSubstring+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, f.MinPrice.String())
		conds = append(conds, fmt.Sprintf("price >= $%d::numeric", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, f.MaxPrice.String())
		conds = append(conds, fmt.Sprintf("price <= $%d::numeric", len(args)))
	}
	q := `SELECT id, name, unit, price::text, stock FROM products`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	return q + ` ORDER BY name`, args
}

func (r *PostgresProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	q, args := productListQuery(f)
	rows, err := r.pg.db(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return out, nil
}

type PostgresAddresses struct{ pg *Postgres }

var _ AddressRepository = (*PostgresAddresses)(nil)

func (r *PostgresAddresses) Create(ctx context.Context, a *domain.Address) error {
	id := uuid.NewString()
	_, err := r.pg.db(ctx).Exec(ctx,
		`INSERT INTO addresses (id, name, phone, address_type, street_address, city, state, pincode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, a.Name, a.Phone, a.AddressType, a.StreetAddress, a.City, a.State, a.Pincode)
	if err != nil {
		return fmt.Errorf("failed to insert address: %w", err)
	}
	a.ID = id
	return nil
}

func (r *PostgresAddresses) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	var a domain.Address
	err := r.pg.db(ctx).QueryRow(ctx,
		`SELECT id, name, phone, address_type, street_address, city, state, pincode
		 FROM addresses WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Phone, &a.AddressType, &a.StreetAddress, &a.City, &a.State, &a.Pincode)
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	return &a, nil
}

type PostgresOrders struct{ pg *Postgres }

var (
	_ OrderRepository = (*PostgresOrders)(nil)
	_ ReceiptReader   = (*PostgresOrders)(nil)
)

func gatewayColumns(g *domain.GatewayRef) (paymentID, orderID *string) {
	if g == nil {
		return nil, nil
	}
	return &g.PaymentID, &g.OrderID
}

func gatewayFromColumns(paymentID, orderID *string) *domain.GatewayRef {
	if paymentID == nil && orderID == nil {
		return nil
	}
	g := &domain.GatewayRef{}
	if paymentID != nil {
		g.PaymentID = *paymentID
	}
	if orderID != nil {
		g.OrderID = *orderID
	}
	return g
}

func (r *PostgresOrders) Create(ctx context.Context, o *domain.Order) error {
	return r.pg.WithTransaction(ctx, func(ctx context.Context) error {
		id := uuid.NewString()
		now := time.Now().UTC().Truncate(time.Microsecond)
		payID, gwOrderID := gatewayColumns(o.Gateway)
		_, err := r.pg.db(ctx).Exec(ctx,
			`INSERT INTO orders (id, address_id, status, payment_mode, gateway_payment_id, gateway_order_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
			id, o.AddressID, string(o.Status), string(o.PaymentMode), payID, gwOrderID, now)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		if err := r.insertItems(ctx, id, o.Items); err != nil {
			return err
		}
		o.ID = id
		o.CreatedAt = now
		o.UpdatedAt = now
		return nil
	})
}

func (r *PostgresOrders) insertItems(ctx context.Context, orderID string, items []domain.OrderItem) error {
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(
			`INSERT INTO order_items (order_id, position, product_id, quantity, price) VALUES ($1, $2, $3, $4, $5::numeric)`,
			orderID, i, it.ProductID, it.Quantity, it.Price.String())
	}
	if err := r.pg.db(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}
	return nil
}

func (r *PostgresOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var (
		o              domain.Order
		status, mode   string
		payID, gwOrdID *string
	)
	err := r.pg.db(ctx).QueryRow(ctx,
		`SELECT id, address_id, status, payment_mode, gateway_payment_id, gateway_order_id, created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.AddressID, &status, &mode, &payID, &gwOrdID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentMode = domain.PaymentMode(mode)
	o.Gateway = gatewayFromColumns(payID, gwOrdID)

	rows, err := r.pg.db(ctx).Query(ctx,
		`SELECT product_id, quantity, price::text FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it    domain.OrderItem
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if it.Price, err = parseNumeric(price); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	return &o, nil
}

func (r *PostgresOrders) Update(ctx context.Context, o *domain.Order) error {
	return r.pg.WithTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		payID, gwOrderID := gatewayColumns(o.Gateway)
		tag, err := r.pg.db(ctx).Exec(ctx,
			`UPDATE orders SET address_id = $2, status = $3, payment_mode = $4,
			 gateway_payment_id = $5, gateway_order_id = $6, updated_at = $7 WHERE id = $1`,
			o.ID, o.AddressID, string(o.Status), string(o.PaymentMode), payID, gwOrderID, now)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := r.pg.db(ctx).Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("failed to replace order items: %w", err)
		}
		if err := r.insertItems(ctx, o.ID, o.Items); err != nil {
			return err
		}
		o.UpdatedAt = now
		return nil
	})
}

const receiptOrderQuery = `
SELECT o.id, o.status, o.payment_mode, o.gateway_payment_id, o.gateway_order_id, o.created_at,
       a.name, a.phone, a.address_type, a.street_address, a.city, a.state, a.pincode
FROM orders o
LEFT JOIN addresses a ON a.id = o.address_id
WHERE o.id = $1`

const receiptItemsQuery = `
SELECT i.product_id, p.name, i.quantity, i.price::text
FROM order_items i
LEFT JOIN products p ON p.id = i.product_id
WHERE i.order_id = $1
ORDER BY i.position`

func (r *PostgresOrders) GetReceiptOrder(ctx context.Context, id string) (*domain.ReceiptOrder, error) {
	var (
		ro                  domain.ReceiptOrder
		status, mode        string
		payID, gwOrdID      *string
		name, phone, kind   *string
		street, city, state *string
		pincode             *string
	)
	err := r.pg.db(ctx).QueryRow(ctx, receiptOrderQuery, id).Scan(
		&ro.ID, &status, &mode, &payID, &gwOrdID, &ro.CreatedAt,
		&name, &phone, &kind, &street, &city, &state, &pincode,
	)
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	ro.Status = domain.OrderStatus(status)
	ro.PaymentMode = domain.PaymentMode(mode)
	ro.Gateway = gatewayFromColumns(payID, gwOrdID)
	if name != nil {
		ro.Address = &domain.Address{
			Name:          *name,
			Phone:         deref(phone),
			AddressType:   deref(kind),
			StreetAddress: deref(street),
			City:          deref(city),
			State:         deref(state),
			Pincode:       deref(pincode),
		}
	}

	rows, err := r.pg.db(ctx).Query(ctx, receiptItemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()
	ro.Items = make([]domain.ReceiptItem, 0)
	for rows.Next() {
		var (
			it          domain.ReceiptItem
			productName *string
			price       string
		)
		if err := rows.Scan(&it.ProductID, &productName, &it.Quantity, &price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if it.Price, err = parseNumeric(price); err != nil {
			return nil, err
		}
		if productName != nil {
			it.Product = &domain.ProductSummary{Name: *productName}
		}
		ro.Items = append(ro.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	return &ro, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

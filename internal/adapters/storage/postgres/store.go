package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect creates a pgx pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 4
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// normalizeDSN strips driver suffixes such as "+asyncpg" that other
// ecosystems put in their connection URLs.
func normalizeDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	for _, suffix := range []string{"+asyncpg", "+pgx", "+psycopg2"} {
		s = strings.Replace(s, suffix+"://", "://", 1)
	}
	return s
}

// Migrate applies the embedded schema and demo seed.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migrations fs: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("postgres: goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("postgres: migrate up: %w", err)
	}

	log := observability.LoggerFromContext(ctx)
	for _, r := range results {
		log.Info("migration applied", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// Store is a Postgres implementation of domain.BusinessData.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ domain.BusinessData = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

const orderColumns = `
	order_id, user_id, product_id, product_name, quantity, user_address,
	to_char(order_place_date, 'DD-MM-YYYY'), to_char(delivery_date, 'DD-MM-YYYY')`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.OrderID, &o.UserID, &o.ProductID, &o.ProductName, &o.Quantity, &o.UserAddress,
		&o.OrderPlaceDate, &o.DeliveryDate)
	return o, err
}

func (s *Store) GetOrder(ctx context.Context, orderID int) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM user_orders WHERE order_id = $1`, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres GetOrder: %w", err)
	}
	return &o, nil
}

func (s *Store) ListUserOrders(ctx context.Context, userID domain.UserID) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM user_orders WHERE user_id = $1 ORDER BY order_id`, int(userID))
	if err != nil {
		return nil, fmt.Errorf("postgres ListUserOrders: %w", err)
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres ListUserOrders scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) FindProducts(ctx context.Context, query string) ([]domain.Product, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, product_name, category, sub_category, price_usd::float8, description
		FROM products
		WHERE product_name ILIKE $1 OR category ILIKE $1 OR description ILIKE $1
		ORDER BY product_id
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("postgres FindProducts: %w", err)
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Category, &p.SubCategory, &p.PriceUSD, &p.Description); err != nil {
			return nil, fmt.Errorf("postgres FindProducts scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) SubmitFeedback(ctx context.Context, fb domain.Feedback) (domain.Ack, error) {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (user_id, description, rating, created_at) VALUES ($1, $2, $3, $4)`,
		int(fb.UserID), fb.Description, fb.Rating, fb.CreatedAt)
	if err != nil {
		return domain.Ack{}, fmt.Errorf("postgres SubmitFeedback: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("feedback submitted",
		slog.Int("user_id", int(fb.UserID)),
		slog.Int("rating", fb.Rating),
	)
	return domain.Ack{Success: true, Message: "Thank you for your feedback!"}, nil
}

func (s *Store) ListUserTransactions(ctx context.Context, userID domain.UserID) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transaction_id, user_id, payment_method, amount_usd::float8,
		       to_char(transaction_at, 'DD-MM-YYYY HH24:MI:SS')
		FROM transactions
		WHERE user_id = $1
		ORDER BY transaction_id
	`, int(userID))
	if err != nil {
		return nil, fmt.Errorf("postgres ListUserTransactions: %w", err)
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.TransactionID, &t.UserID, &t.PaymentMethod, &t.AmountUSD, &t.TransactionDateTime); err != nil {
			return nil, fmt.Errorf("postgres ListUserTransactions scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ContactHumanSupport(ctx context.Context, req domain.HandoffRequest) (domain.Ack, error) {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = s.now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO support_handoffs (name, requested_at) VALUES ($1, $2)`, req.Name, req.RequestedAt)
	if err != nil {
		return domain.Ack{}, fmt.Errorf("postgres ContactHumanSupport: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("human support requested", "name", req.Name)
	return domain.Ack{Success: true, Message: fmt.Sprintf("Support contact initiated for %s.", req.Name)}, nil
}

// ListFeedback returns the last `limit` entries for a user, oldest first.
// If limit <= 0, returns all.
func (s *Store) ListFeedback(ctx context.Context, userID domain.UserID, limit int) ([]domain.Feedback, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT user_id, rating, description, created_at FROM (
			SELECT feedback_id, user_id, rating, description, created_at
			FROM feedback
			WHERE user_id = $1
			ORDER BY created_at DESC, feedback_id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, feedback_id
	`, int(userID), lim)
	if err != nil {
		return nil, fmt.Errorf("postgres ListFeedback: %w", err)
	}
	defer rows.Close()

	out := []domain.Feedback{}
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(&fb.UserID, &fb.Rating, &fb.Description, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres ListFeedback scan: %w", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

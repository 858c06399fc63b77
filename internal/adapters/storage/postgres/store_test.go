package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/PabloGalante/serviceai-agent/internal/adapters/storage/postgres"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

// Runs only when SERVICEAI_TEST_POSTGRES_DSN points at a scratch database.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("SERVICEAI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SERVICEAI_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return postgres.NewStore(pool)
}

func TestSeededCatalogue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	order, err := store.GetOrder(ctx, 2)
	if err != nil || order == nil {
		t.Fatalf("GetOrder: %+v, %v", order, err)
	}
	if order.ProductName != "XG-900 Gaming Mouse" || order.OrderPlaceDate != "20-10-2025" || order.DeliveryDate != "22-10-2025" {
		t.Fatalf("unexpected order %+v", order)
	}

	missing, err := store.GetOrder(ctx, 424242)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for a missing order, got %+v, %v", missing, err)
	}

	orders, err := store.ListUserOrders(ctx, 2)
	if err != nil || len(orders) != 2 {
		t.Fatalf("ListUserOrders: %+v, %v", orders, err)
	}

	products, err := store.FindProducts(ctx, "gaming")
	if err != nil || len(products) != 2 {
		t.Fatalf("FindProducts: %+v, %v", products, err)
	}

	txs, err := store.ListUserTransactions(ctx, 1)
	if err != nil || len(txs) != 1 || txs[0].TransactionDateTime != "15-10-2025 10:00:00" {
		t.Fatalf("ListUserTransactions: %+v, %v", txs, err)
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, r := range []int{2, 5} {
		if _, err := store.SubmitFeedback(ctx, domain.Feedback{UserID: 3, Rating: r, Description: "pg"}); err != nil {
			t.Fatalf("SubmitFeedback: %v", err)
		}
	}

	fb, err := store.ListFeedback(ctx, 3, 1)
	if err != nil || len(fb) != 1 || fb[0].Rating != 5 {
		t.Fatalf("expected the newest entry, got %+v, %v", fb, err)
	}
}

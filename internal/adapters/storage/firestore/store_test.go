package firestore_test

import (
	"context"
	"os"
	"testing"

	fsstore "github.com/PabloGalante/serviceai-agent/internal/adapters/storage/firestore"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

// These tests run against the Firestore emulator only.
func newEmulatorStore(t *testing.T) *fsstore.Store {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	store, err := fsstore.NewStore(context.Background(), "serviceai-test")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStoreRequiresProject(t *testing.T) {
	if _, err := fsstore.NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected an error without a project")
	}
}

func TestStoreAgainstEmulator(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()

	err := store.Seed(ctx,
		[]domain.Order{{OrderID: 901, UserID: 90, ProductName: "Test Mouse", OrderPlaceDate: "01-01-2025", DeliveryDate: "03-01-2025"}},
		[]domain.Product{{ProductID: 901, ProductName: "Test Mouse", Category: "Mouses", Description: "emulator only"}},
		[]domain.Transaction{{TransactionID: 901, UserID: 90, PaymentMethod: "Card", AmountUSD: 10}},
	)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	order, err := store.GetOrder(ctx, 901)
	if err != nil || order == nil || order.ProductName != "Test Mouse" {
		t.Fatalf("GetOrder: %+v, %v", order, err)
	}
	missing, err := store.GetOrder(ctx, 999999)
	if err != nil || missing != nil {
		t.Fatalf("expected a nil order for a missing id, got %+v, %v", missing, err)
	}

	orders, err := store.ListUserOrders(ctx, 90)
	if err != nil || len(orders) != 1 {
		t.Fatalf("ListUserOrders: %+v, %v", orders, err)
	}

	products, err := store.FindProducts(ctx, "EMULATOR")
	if err != nil || len(products) != 1 {
		t.Fatalf("FindProducts: %+v, %v", products, err)
	}

	if _, err := store.SubmitFeedback(ctx, domain.Feedback{UserID: 90, Rating: 4, Description: "ok"}); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	fb, err := store.ListFeedback(ctx, 90, 1)
	if err != nil || len(fb) != 1 || fb[0].Rating != 4 {
		t.Fatalf("ListFeedback: %+v, %v", fb, err)
	}
}

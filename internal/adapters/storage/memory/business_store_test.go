package memory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/PabloGalante/serviceai-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

func TestBusinessStoreDefaultDataset(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBusinessStore(memory.DefaultDataset())

	order, err := store.GetOrder(ctx, 2)
	if err != nil || order == nil {
		t.Fatalf("expected order 2, got %v err=%v", order, err)
	}
	if order.ProductName != "XG-900 Gaming Mouse" {
		t.Fatalf("unexpected product %q", order.ProductName)
	}

	missing, err := store.GetOrder(ctx, 99)
	if err != nil || missing != nil {
		t.Fatalf("expected nil order without error, got %v err=%v", missing, err)
	}

	orders, _ := store.ListUserOrders(ctx, 2)
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders for user 2, got %d", len(orders))
	}

	none, _ := store.ListUserTransactions(ctx, 3)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty, non-nil slice, got %v", none)
	}
}

func TestFindProductsMatchesNameCategoryAndDescription(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBusinessStore(memory.DefaultDataset())

	cases := map[string]int{
		"gaming mouse": 1, // name
		"laptops":      1, // category
		"thunderbolt":  1, // name + description, same product
		"GAMING":       2,
		"toaster":      0,
	}
	for query, want := range cases {
		got, err := store.FindProducts(ctx, query)
		if err != nil {
			t.Fatalf("FindProducts(%q) failed: %v", query, err)
		}
		if len(got) != want {
			t.Fatalf("FindProducts(%q): expected %d, got %d", query, want, len(got))
		}
	}
}

func TestSubmitAndListFeedback(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBusinessStore(memory.DefaultDataset())

	for i := 1; i <= 3; i++ {
		ack, err := store.SubmitFeedback(ctx, domain.Feedback{UserID: 1, Rating: i, Description: "ok"})
		if err != nil || !ack.Success {
			t.Fatalf("SubmitFeedback failed: %v %+v", err, ack)
		}
	}

	last, _ := store.ListFeedback(ctx, 1, 2)
	if len(last) != 2 || last[0].Rating != 2 || last[1].Rating != 3 {
		t.Fatalf("expected the two most recent entries, got %+v", last)
	}
	if last[0].CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be stamped")
	}
}

func TestContactHumanSupportRecordsRequest(t *testing.T) {
	store := memory.NewBusinessStore(memory.DefaultDataset())

	ack, err := store.ContactHumanSupport(context.Background(), domain.HandoffRequest{Name: "Asha"})
	if err != nil {
		t.Fatalf("ContactHumanSupport failed: %v", err)
	}
	if ack.Message != "Support contact initiated for Asha." {
		t.Fatalf("unexpected ack %q", ack.Message)
	}
	if got := store.Handoffs(); len(got) != 1 || got[0].Name != "Asha" {
		t.Fatalf("expected one recorded handoff, got %+v", got)
	}
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	fixture := `
orders:
  - order_id: 7
    user_id: 1
    product_name: Desk Lamp
    order_place_date: 01-01-2026
    delivery_date: 05-01-2026
products:
  - product_id: 9
    product_name: Desk Lamp
    category: Lighting
    price_usd: 25.5
`
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ds, err := memory.LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if len(ds.Orders) != 1 || ds.Orders[0].OrderID != 7 || ds.Orders[0].DeliveryDate != "05-01-2026" {
		t.Fatalf("unexpected orders %+v", ds.Orders)
	}
	if len(ds.Products) != 1 || ds.Products[0].PriceUSD != 25.5 {
		t.Fatalf("unexpected products %+v", ds.Products)
	}

	if _, err := memory.LoadDataset(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestUserDirectory(t *testing.T) {
	dir := memory.NewUserDirectory(memory.DemoUsers())

	u, err := dir.FindByEmail("  ASHA.KUMAR@example.com ")
	if err != nil || u.ID != 1 {
		t.Fatalf("expected Asha, got %+v err=%v", u, err)
	}
	if _, err := dir.Lookup(42); err == nil {
		t.Fatalf("expected unknown user error")
	}
}

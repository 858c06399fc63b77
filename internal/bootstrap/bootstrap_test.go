package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/PabloGalante/serviceai-agent/internal/bootstrap"
	"github.com/PabloGalante/serviceai-agent/internal/config"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

func TestNewMemoryMock(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, &config.Config{
		LLMProvider: config.ProviderMock,
		DataBackend: config.BackendMemory,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	if app.Workspace.VoiceAvailable() {
		t.Fatalf("the mock provider has no live voice")
	}
	ws, err := app.Workspace.Login(ctx, "asha.kumar@example.com")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	order, err := app.Data.GetOrder(ctx, 1)
	if err != nil || order == nil || order.UserID != ws.User.ID {
		t.Fatalf("unexpected order %+v, err=%v", order, err)
	}
}

func TestNewLoadsDataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	fixture := "orders:\n  - order_id: 42\n    user_id: 3\n    product_name: Desk Lamp\n"
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, &config.Config{
		LLMProvider: config.ProviderMock,
		DataBackend: config.BackendMemory,
		DataFile:    path,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	order, err := app.Data.GetOrder(ctx, 42)
	if err != nil || order == nil || order.UserID != domain.UserID(3) {
		t.Fatalf("unexpected order %+v, err=%v", order, err)
	}
	if order, _ := app.Data.GetOrder(ctx, 1); order != nil {
		t.Fatalf("the fixture should replace the demo dataset")
	}
}

func TestNewMissingDataFile(t *testing.T) {
	_, err := bootstrap.New(context.Background(), &config.Config{
		LLMProvider: config.ProviderMock,
		DataBackend: config.BackendMemory,
		DataFile:    filepath.Join(t.TempDir(), "missing.yaml"),
	})
	if err == nil {
		t.Fatalf("expected an error for a missing fixture")
	}
}

package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

// Dataset is the content of the in-memory business backend. It can be loaded
// from a YAML fixture with LoadDataset.
type Dataset struct {
	Orders       []domain.Order       `yaml:"orders"`
	Products     []domain.Product     `yaml:"products"`
	Transactions []domain.Transaction `yaml:"transactions"`
	Feedback     []domain.Feedback    `yaml:"feedback"`
}

// DefaultDataset returns the demo catalogue shipped with the service.
func DefaultDataset() Dataset {
	return Dataset{
		Orders: []domain.Order{
			{OrderID: 1, UserID: 1, ProductID: 1, ProductName: "PixelPhone Z10", Quantity: 1, UserAddress: "12 MG Road, Bangalore, KA, India", OrderPlaceDate: "15-10-2025", DeliveryDate: "18-10-2025"},
			{OrderID: 2, UserID: 2, ProductID: 6, ProductName: "XG-900 Gaming Mouse", Quantity: 1, UserAddress: "45 Residency Road, Bangalore, KA, India", OrderPlaceDate: "20-10-2025", DeliveryDate: "22-10-2025"},
			{OrderID: 3, UserID: 2, ProductID: 8, ProductName: "ThunderPro Cable (Thunderbolt 4)", Quantity: 2, UserAddress: "45 Residency Road, Bangalore, KA, India", OrderPlaceDate: "01-11-2025", DeliveryDate: "04-11-2025"},
		},
		Products: []domain.Product{
			{ProductID: 1, ProductName: "PixelPhone Z10", Category: "Phones", SubCategory: "Smartphone", PriceUSD: 499.00, Description: `6.5" display, 128GB storage`},
			{ProductID: 2, ProductName: "MightyBook Pro 15 (Gaming)", Category: "Laptops", SubCategory: "Gaming", PriceUSD: 1299.00, Description: "RTX GPU, 16GB RAM"},
			{ProductID: 6, ProductName: "XG-900 Gaming Mouse", Category: "Mouses", SubCategory: "Gaming", PriceUSD: 79.00, Description: "High DPI gaming mouse"},
			{ProductID: 8, ProductName: "ThunderPro Cable (Thunderbolt 4)", Category: "Cables", SubCategory: "Thunderbolt", PriceUSD: 39.00, Description: "1m Thunderbolt 4 cable"},
		},
		Transactions: []domain.Transaction{
			{TransactionID: 101, UserID: 1, PaymentMethod: "Credit Card", AmountUSD: 499.00, TransactionDateTime: "15-10-2025 10:00:00"},
			{TransactionID: 102, UserID: 2, PaymentMethod: "PayPal", AmountUSD: 79.00, TransactionDateTime: "20-10-2025 14:30:00"},
			{TransactionID: 103, UserID: 2, PaymentMethod: "PayPal", AmountUSD: 78.00, TransactionDateTime: "01-11-2025 09:00:00"},
		},
	}
}

// LoadDataset reads a YAML fixture from path.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return ds, nil
}

// BusinessStore is an in-memory implementation of domain.BusinessData.
// It is NOT persistent and is only suitable for development / local mode.
type BusinessStore struct {
	mu       sync.RWMutex
	data     Dataset
	handoffs []domain.HandoffRequest
	now      func() time.Time
}

var _ domain.BusinessData = (*BusinessStore)(nil)

func NewBusinessStore(ds Dataset) *BusinessStore {
	return &BusinessStore{data: ds, now: time.Now}
}

func (s *BusinessStore) GetOrder(_ context.Context, orderID int) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.data.Orders {
		if o.OrderID == orderID {
			order := o
			return &order, nil
		}
	}
	return nil, nil
}

func (s *BusinessStore) ListUserOrders(_ context.Context, userID domain.UserID) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Order{}
	for _, o := range s.data.Orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// FindProducts matches the query case-insensitively against name, category
// and description.
func (s *BusinessStore) FindProducts(_ context.Context, query string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Product{}
	for _, p := range s.data.Products {
		if p.Matches(query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *BusinessStore) SubmitFeedback(ctx context.Context, fb domain.Feedback) (domain.Ack, error) {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.data.Feedback = append(s.data.Feedback, fb)
	s.mu.Unlock()

	observability.LoggerFromContext(ctx).Info("feedback submitted",
		slog.Int("user_id", int(fb.UserID)),
		slog.Int("rating", fb.Rating),
	)
	return domain.Ack{Success: true, Message: "Thank you for your feedback!"}, nil
}

func (s *BusinessStore) ListUserTransactions(_ context.Context, userID domain.UserID) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Transaction{}
	for _, t := range s.data.Transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *BusinessStore) ContactHumanSupport(ctx context.Context, req domain.HandoffRequest) (domain.Ack, error) {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = s.now()
	}

	s.mu.Lock()
	s.handoffs = append(s.handoffs, req)
	s.mu.Unlock()

	observability.LoggerFromContext(ctx).Info("human support requested", "name", req.Name)
	return domain.Ack{Success: true, Message: fmt.Sprintf("Support contact initiated for %s.", req.Name)}, nil
}

// ListFeedback returns the last `limit` feedback entries for a user.
// If limit <= 0, returns all.
func (s *BusinessStore) ListFeedback(_ context.Context, userID domain.UserID, limit int) ([]domain.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Feedback{}
	for _, fb := range s.data.Feedback {
		if fb.UserID == userID {
			out = append(out, fb)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Handoffs returns the recorded handoff requests.
func (s *BusinessStore) Handoffs() []domain.HandoffRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.HandoffRequest, len(s.handoffs))
	copy(out, s.handoffs)
	return out
}

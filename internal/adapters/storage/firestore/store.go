package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

// Store is a Firestore implementation of domain.BusinessData.
type Store struct {
	client *firestore.Client
	now    func() time.Time
}

var _ domain.BusinessData = (*Store)(nil)

// NewStore creates a Firestore store for projectID (SERVICEAI_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) ordersCol() *firestore.CollectionRef {
	return s.client.Collection("orders")
}

func (s *Store) productsCol() *firestore.CollectionRef {
	return s.client.Collection("products")
}

func (s *Store) transactionsCol() *firestore.CollectionRef {
	return s.client.Collection("transactions")
}

func (s *Store) feedbackCol() *firestore.CollectionRef {
	return s.client.Collection("feedback")
}

func (s *Store) handoffsCol() *firestore.CollectionRef {
	return s.client.Collection("handoffs")
}

func docID(id int) string {
	return strconv.Itoa(id)
}

// collect drains a query into a slice of T.
func collect[T any](iter *firestore.DocumentIterator, op string) ([]T, error) {
	defer iter.Stop()

	out := []T{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore %s: %w", op, err)
		}

		var v T
		if err := snap.DataTo(&v); err != nil {
			return nil, fmt.Errorf("firestore %s decode %s: %w", op, snap.Ref.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ─────────────────────────────────────────
// BusinessData implementation
// ─────────────────────────────────────────

func (s *Store) GetOrder(ctx context.Context, orderID int) (*domain.Order, error) {
	snap, err := s.ordersCol().Doc(docID(orderID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore GetOrder: %w", err)
	}

	var order domain.Order
	if err := snap.DataTo(&order); err != nil {
		return nil, fmt.Errorf("firestore GetOrder decode: %w", err)
	}
	return &order, nil
}

func (s *Store) ListUserOrders(ctx context.Context, userID domain.UserID) ([]domain.Order, error) {
	q := s.ordersCol().Where("user_id", "==", int(userID)).OrderBy("order_id", firestore.Asc)
	return collect[domain.Order](q.Documents(ctx), "ListUserOrders")
}

// FindProducts scans the catalogue; Firestore has no substring queries and
// the catalogue is small.
func (s *Store) FindProducts(ctx context.Context, query string) ([]domain.Product, error) {
	all, err := collect[domain.Product](s.productsCol().Documents(ctx), "FindProducts")
	if err != nil {
		return nil, err
	}

	out := []domain.Product{}
	for _, p := range all {
		if p.Matches(query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) SubmitFeedback(ctx context.Context, fb domain.Feedback) (domain.Ack, error) {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}

	if _, _, err := s.feedbackCol().Add(ctx, fb); err != nil {
		return domain.Ack{}, fmt.Errorf("firestore SubmitFeedback: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("feedback submitted",
		slog.Int("user_id", int(fb.UserID)),
		slog.Int("rating", fb.Rating),
	)
	return domain.Ack{Success: true, Message: "Thank you for your feedback!"}, nil
}

func (s *Store) ListUserTransactions(ctx context.Context, userID domain.UserID) ([]domain.Transaction, error) {
	q := s.transactionsCol().Where("user_id", "==", int(userID)).OrderBy("transaction_id", firestore.Asc)
	return collect[domain.Transaction](q.Documents(ctx), "ListUserTransactions")
}

func (s *Store) ContactHumanSupport(ctx context.Context, req domain.HandoffRequest) (domain.Ack, error) {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = s.now()
	}

	if _, _, err := s.handoffsCol().Add(ctx, req); err != nil {
		return domain.Ack{}, fmt.Errorf("firestore ContactHumanSupport: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("human support requested", "name", req.Name)
	return domain.Ack{Success: true, Message: fmt.Sprintf("Support contact initiated for %s.", req.Name)}, nil
}

// ListFeedback returns the last `limit` entries for a user, oldest first.
func (s *Store) ListFeedback(ctx context.Context, userID domain.UserID, limit int) ([]domain.Feedback, error) {
	q := s.feedbackCol().Where("user_id", "==", int(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	out, err := collect[domain.Feedback](q.Documents(ctx), "ListFeedback")
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ─────────────────────────────────────────
// Seeding
// ─────────────────────────────────────────

// Seed writes a catalogue keyed by record id. Existing documents with the same
// id are overwritten.
func (s *Store) Seed(ctx context.Context, orders []domain.Order, products []domain.Product, transactions []domain.Transaction) error {
	bw := s.client.BulkWriter(ctx)

	var jobs []*firestore.BulkWriterJob
	enqueue := func(ref *firestore.DocumentRef, data any) error {
		job, err := bw.Set(ref, data)
		if err != nil {
			return fmt.Errorf("firestore Seed %s: %w", ref.Path, err)
		}
		jobs = append(jobs, job)
		return nil
	}

	for _, o := range orders {
		if err := enqueue(s.ordersCol().Doc(docID(o.OrderID)), o); err != nil {
			bw.End()
			return err
		}
	}
	for _, p := range products {
		if err := enqueue(s.productsCol().Doc(docID(p.ProductID)), p); err != nil {
			bw.End()
			return err
		}
	}
	for _, t := range transactions {
		if err := enqueue(s.transactionsCol().Doc(docID(t.TransactionID)), t); err != nil {
			bw.End()
			return err
		}
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("firestore Seed: %w", err)
		}
	}
	return nil
}

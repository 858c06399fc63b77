package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

const (
	noOrdersText       = "No orders found for this user."
	noProductsText     = "No products found matching that query."
	noTransactionsText = "No transactions found for this user."
)

// ─────────────────────────────────────────────
// getOrderStatus
// ─────────────────────────────────────────────

type orderStatusArgs struct {
	OrderID int
}

type orderStatusTool struct {
	data domain.BusinessData
}

func (t *orderStatusTool) Name() domain.ToolName { return domain.ToolGetOrderStatus }

func (t *orderStatusTool) Declaration() domain.ToolDeclaration {
	return domain.ToolDeclaration{
		Name:        t.Name(),
		Description: "Get the status of a specific order by its ID.",
		Params: []domain.ToolParam{
			{Name: "orderId", Type: domain.ParamNumber, Description: "The ID of the order to check.", Required: true},
		},
	}
}

func (t *orderStatusTool) Call(ctx context.Context, raw map[string]any) (any, error) {
	id, err := getInt(t.Name(), raw, "orderId")
	if err != nil {
		return nil, err
	}
	args := orderStatusArgs{OrderID: id}

	order, err := t.data.GetOrder(ctx, args.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", args.OrderID, err)
	}
	if order == nil {
		return fmt.Sprintf("Order with ID %d not found.", args.OrderID), nil
	}
	return fmt.Sprintf("Order for %s placed on %s is scheduled for delivery on %s.",
		order.ProductName, order.OrderPlaceDate, order.DeliveryDate), nil
}

// ─────────────────────────────────────────────
// listUserOrders
// ─────────────────────────────────────────────

type userArgs struct {
	UserID domain.UserID
}

func decodeUserArgs(tool domain.ToolName, raw map[string]any) (userArgs, error) {
	id, err := getInt(tool, raw, "userId")
	if err != nil {
		return userArgs{}, err
	}
	return userArgs{UserID: domain.UserID(id)}, nil
}

type userOrdersTool struct {
	data domain.BusinessData
}

func (t *userOrdersTool) Name() domain.ToolName { return domain.ToolListUserOrders }

func (t *userOrdersTool) Declaration() domain.ToolDeclaration {
	return domain.ToolDeclaration{
		Name:        t.Name(),
		Description: "List all orders for a given user.",
		Params: []domain.ToolParam{
			{Name: "userId", Type: domain.ParamNumber, Description: "The ID of the user whose orders to list.", Required: true},
		},
	}
}

func (t *userOrdersTool) Call(ctx context.Context, raw map[string]any) (any, error) {
	args, err := decodeUserArgs(t.Name(), raw)
	if err != nil {
		return nil, err
	}

	orders, err := t.data.ListUserOrders(ctx, args.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders of user %d: %w", args.UserID, err)
	}
	if len(orders) == 0 {
		return noOrdersText, nil
	}
	return orders, nil
}

// ─────────────────────────────────────────────
// findProducts
// ─────────────────────────────────────────────

type findProductsTool struct {
	data domain.BusinessData
}

func (t *findProductsTool) Name() domain.ToolName { return domain.ToolFindProducts }

func (t *findProductsTool) Declaration() domain.ToolDeclaration {
	return domain.ToolDeclaration{
		Name:        t.Name(),
		Description: "Find products based on a search query.",
		Params: []domain.ToolParam{
			{Name: "query", Type: domain.ParamString, Description: `A search term for products (e.g., "gaming mouse", "laptop").`, Required: true},
		},
	}
}

func (t *findProductsTool) Call(ctx context.Context, raw map[string]any) (any, error) {
	query, err := getString(t.Name(), raw, "query")
	if err != nil {
		return nil, err
	}

	products, err := t.data.FindProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find products %q: %w", query, err)
	}
	if len(products) == 0 {
		return noProductsText, nil
	}
	return products, nil
}

// ─────────────────────────────────────────────
// submitFeedback
// ─────────────────────────────────────────────

type feedbackArgs struct {
	UserID      domain.UserID
	Rating      int
	Description string
}

type submitFeedbackTool struct {
	data domain.BusinessData
	now  func() time.Time
}

func (t *submitFeedbackTool) Name() domain.ToolName { return domain.ToolSubmitFeedback }

func (t *submitFeedbackTool) Declaration() domain.ToolDeclaration {
	return domain.ToolDeclaration{
		Name:        t.Name(),
		Description: "Submit feedback about the service.",
		Params: []domain.ToolParam{
			{Name: "userId", Type: domain.ParamNumber, Required: true},
			{Name: "rating", Type: domain.ParamNumber, Description: "A rating from 1 (bad) to 5 (excellent).", Required: true},
			{Name: "description", Type: domain.ParamString, Description: "The text content of the feedback.", Required: true},
		},
	}
}

func (t *submitFeedbackTool) decode(raw map[string]any) (feedbackArgs, error) {
	user, err := decodeUserArgs(t.Name(), raw)
	if err != nil {
		return feedbackArgs{}, err
	}
	rating, err := getInt(t.Name(), raw, "rating")
	if err != nil {
		return feedbackArgs{}, err
	}
	if rating < domain.MinRating || rating > domain.MaxRating {
		return feedbackArgs{}, invalidArg(t.Name(), "rating must be between %d and %d, got %d",
			domain.MinRating, domain.MaxRating, rating)
	}
	desc, err := getString(t.Name(), raw, "description")
	if err != nil {
		return feedbackArgs{}, err
	}
	return feedbackArgs{UserID: user.UserID, Rating: rating, Description: strings.TrimSpace(desc)}, nil
}

func (t *submitFeedbackTool) Call(ctx context.Context, raw map[string]any) (any, error) {
	args, err := t.decode(raw)
	if err != nil {
		return nil, err
	}

	ack, err := t.data.SubmitFeedback(ctx, domain.Feedback{
		UserID:      args.UserID,
		Rating:      args.Rating,
		Description: args.Description,
		CreatedAt:   t.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("submit feedback: %w", err)
	}
	return ack, nil
}

// ─────────────────────────────────────────────
// listUserTransactions
// ─────────────────────────────────────────────

type userTransactionsTool struct {
	data domain.BusinessData
}

func (t *userTransactionsTool) Name() domain.ToolName { return domain.ToolListUserTransactions }

func (t *userTransactionsTool) Declaration() domain.ToolDeclaration {
	return domain.ToolDeclaration{
		Name:        t.Name(),
		Description: "List all financial transactions for a given user.",
		Params: []domain.ToolParam{
			{Name: "userId", Type: domain.ParamNumber, Description: "The ID of the user whose transactions to list.", Required: true},
		},
	}
}

func (t *userTransactionsTool) Call(ctx context.Context, raw map[string]any) (any, error) {
	args, err := decodeUserArgs(t.Name(), raw)
	if err != nil {
		return nil, err
	}

	txs, err := t.data.ListUserTransactions(ctx, args.UserID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of user %d: %w", args.UserID, err)
	}
	if len(txs) == 0 {
		return noTransactionsText, nil
	}
	return txs, nil
}

// ─────────────────────────────────────────────
// contactHumanSupport
// ─────────────────────────────────────────────

type contactSupportTool struct {
	data     domain.BusinessData
	notifier domain.HandoffNotifier
	now      func() time.Time
}

func (t *contactSupportTool) Name() domain.ToolName { return domain.ToolContactHumanSupport }

func (t *contactSupportTool) Declaration() domain.ToolDeclaration {
	return domain.ToolDeclaration{
		Name: t.Name(),
		Description: "Use this function when the user explicitly asks to speak to a human, a person, " +
			"an agent, or wants to contact the customer service department.",
		Params: []domain.ToolParam{
			{Name: "name", Type: domain.ParamString, Description: "The user's first name.", Required: true},
		},
	}
}

func (t *contactSupportTool) Call(ctx context.Context, raw map[string]any) (any, error) {
	name, err := getString(t.Name(), raw, "name")
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArg(t.Name(), "name must not be empty")
	}

	req := domain.HandoffRequest{Name: name, RequestedAt: t.now()}
	ack, err := t.data.ContactHumanSupport(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("contact human support: %w", err)
	}

	// The handoff already succeeded; a failed notification only gets logged.
	if t.notifier != nil {
		if err := t.notifier.NotifyHandoff(ctx, req); err != nil {
			observability.LoggerFromContext(ctx).Error("failed to notify handoff",
				"error", err,
				"name", name,
			)
		}
	}
	return ack, nil
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

var (
	envelopePattern = regexp.MustCompile(`^\(User Details: UserID=(\d+), FullName=([^,]*), Email=[^)]*\)\s*User query: (?s)(.*)$`)
	orderIDPattern  = regexp.MustCompile(`(?i)order\s*(?:#|id|number)?\s*(\d+)`)
	findPattern     = regexp.MustCompile(`(?i)(?:looking for|find|search for|do you have)\s+(?:an?\s+|some\s+)?([\w\s-]+)`)
)

// MockGateway is a deterministic model used for local runs and tests. It
// recognizes a few intents and answers them through the real tools, so the
// whole tool loop runs without credentials.
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) CreateSession(context.Context, []domain.Message) (domain.ModelSession, error) {
	return &mockSession{}, nil
}

// ProposeTitle uses the first five words of the seed. Greetings keep the
// placeholder name, as the title prompt asks of the real models.
func (m *MockGateway) ProposeTitle(_ context.Context, seed string) (string, error) {
	words := strings.Fields(seed)
	if len(words) == 0 || domain.IsGreeting(seed) {
		return domain.DefaultConversationName, nil
	}
	if len(words) > 5 {
		words = words[:5]
	}
	title := []rune(strings.TrimRight(strings.Join(words, " "), ".?!,"))
	if len(title) == 0 {
		return domain.DefaultConversationName, nil
	}
	title[0] = unicode.ToUpper(title[0])
	return string(title), nil
}

type mockSession struct {
	firstName string
}

func (s *mockSession) Send(_ context.Context, prompt string) (domain.ModelReply, error) {
	userID, fullName, query := parseEnvelope(prompt)
	s.firstName = domain.User{FullName: fullName}.FirstName()
	lower := strings.ToLower(query)

	switch {
	case strings.Contains(lower, "human") || strings.Contains(lower, "representative") || strings.Contains(lower, "real person"):
		return s.call(domain.ToolContactHumanSupport, map[string]any{"name": s.firstName}), nil

	case orderIDPattern.MatchString(query):
		id, _ := strconv.Atoi(orderIDPattern.FindStringSubmatch(query)[1])
		return s.call(domain.ToolGetOrderStatus, map[string]any{"orderId": float64(id)}), nil

	case strings.Contains(lower, "order") && userID > 0:
		return s.call(domain.ToolListUserOrders, map[string]any{"userId": float64(userID)}), nil

	case (strings.Contains(lower, "transaction") || strings.Contains(lower, "payment")) && userID > 0:
		return s.call(domain.ToolListUserTransactions, map[string]any{"userId": float64(userID)}), nil

	case findPattern.MatchString(query):
		q := strings.TrimSpace(findPattern.FindStringSubmatch(query)[1])
		return s.call(domain.ToolFindProducts, map[string]any{"query": q}), nil
	}

	return domain.ModelReply{
		Text: fmt.Sprintf("I hear you. You said %q. Could you tell me a bit more so I can help?", query),
	}, nil
}

func (s *mockSession) call(name domain.ToolName, args map[string]any) domain.ModelReply {
	return domain.ModelReply{ToolCalls: []domain.ToolCall{{
		ID:   "mock-" + string(name),
		Name: name,
		Args: args,
	}}}
}

func (s *mockSession) SendToolResults(_ context.Context, results []domain.ToolResult) (domain.ModelReply, error) {
	var b strings.Builder
	for _, r := range results {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		switch {
		case r.Failed():
			fmt.Fprintf(&b, "Sorry, something went wrong: %s", r.Err.Message)
		case r.Name == domain.ToolContactHumanSupport:
			fmt.Fprintf(&b, "Sure %s, i will contact the human customer service department right away. %s",
				s.firstName, domain.ContactSupportToken)
		default:
			b.WriteString(describe(r.Output))
		}
	}
	return domain.ModelReply{Text: b.String()}, nil
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return "Here is what I found: " + string(raw)
}

// parseEnvelope splits the identity envelope from the user query. Prompts
// without an envelope are returned as the query.
func parseEnvelope(prompt string) (domain.UserID, string, string) {
	m := envelopePattern.FindStringSubmatch(prompt)
	if m == nil {
		return 0, "", strings.TrimSpace(prompt)
	}
	id, _ := strconv.Atoi(m[1])
	return domain.UserID(id), strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"google.golang.org/genai"
)

// GeminiConfig selects the backend and the models used by GeminiGateway.
type GeminiConfig struct {
	APIKey string

	// Project and Location select Vertex AI instead of the Gemini API.
	Project  string
	Location string

	Model      string
	TitleModel string
	LiveModel  string
	Voice      string
}

func (c GeminiConfig) backend() genai.Backend {
	if c.Project != "" && c.APIKey == "" {
		return genai.BackendVertexAI
	}
	return genai.BackendGeminiAPI
}

// GeminiGateway talks to Gemini through google.golang.org/genai. It serves
// text sessions, titles and live voice sessions.
type GeminiGateway struct {
	client *genai.Client
	cfg    GeminiConfig
	tools  []*genai.Tool
}

func NewGeminiGateway(ctx context.Context, cfg GeminiConfig, decls []domain.ToolDeclaration) (*GeminiGateway, error) {
	cc := &genai.ClientConfig{Backend: cfg.backend()}
	if cc.Backend == genai.BackendVertexAI {
		if cfg.Location == "" {
			return nil, fmt.Errorf("vertex backend needs a location")
		}
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini backend needs an API key")
		}
		cc.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.TitleModel == "" {
		cfg.TitleModel = cfg.Model
	}

	return &GeminiGateway{
		client: client,
		cfg:    cfg,
		tools:  genaiTools(decls),
	}, nil
}

// CreateSession opens a chat seeded with prior, mapped to user/model roles.
func (g *GeminiGateway) CreateSession(ctx context.Context, prior []domain.Message) (domain.ModelSession, error) {
	history := make([]*genai.Content, 0, len(prior))
	for _, m := range prior {
		var role genai.Role
		switch m.Sender {
		case domain.SenderAI:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}
		history = append(history, genai.NewContentFromText(m.Text, role))
	}

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		Tools:             g.tools,
		Temperature:       &temp,
	}

	chat, err := g.client.Chats.Create(ctx, g.cfg.Model, cfg, history)
	if err != nil {
		return nil, fmt.Errorf("gemini create chat: %w", err)
	}
	return &geminiSession{chat: chat}, nil
}

// ProposeTitle implements domain.TitleGenerator with a one-shot call.
func (g *GeminiGateway) ProposeTitle(ctx context.Context, seed string) (string, error) {
	temp := float32(0.2)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 32,
	}

	contents := []*genai.Content{genai.NewContentFromText(TitlePrompt(seed), genai.RoleUser)}
	res, err := g.client.Models.GenerateContent(ctx, g.cfg.TitleModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate title: %w", err)
	}
	return strings.TrimSpace(res.Text()), nil
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) Send(ctx context.Context, prompt string) (domain.ModelReply, error) {
	res, err := s.chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return domain.ModelReply{}, fmt.Errorf("gemini send message: %w", err)
	}
	return replyFrom(res)
}

func (s *geminiSession) SendToolResults(ctx context.Context, results []domain.ToolResult) (domain.ModelReply, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.Part{FunctionResponse: functionResponse(r)})
	}

	res, err := s.chat.SendMessage(ctx, parts...)
	if err != nil {
		return domain.ModelReply{}, fmt.Errorf("gemini send tool results: %w", err)
	}
	return replyFrom(res)
}

func replyFrom(res *genai.GenerateContentResponse) (domain.ModelReply, error) {
	if calls := res.FunctionCalls(); len(calls) > 0 {
		return domain.ModelReply{ToolCalls: toolCalls(calls)}, nil
	}

	text := res.Text()
	if text == "" {
		return domain.ModelReply{}, fmt.Errorf("gemini returned empty text")
	}
	return domain.ModelReply{Text: text}, nil
}

func toolCalls(calls []*genai.FunctionCall) []domain.ToolCall {
	out := make([]domain.ToolCall, 0, len(calls))
	for _, fc := range calls {
		if fc == nil {
			continue
		}
		args := fc.Args
		if args == nil {
			args = map[string]any{}
		}
		out = append(out, domain.ToolCall{
			ID:   fc.ID,
			Name: domain.ToolName(fc.Name),
			Args: args,
		})
	}
	return out
}

func functionResponse(r domain.ToolResult) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:       r.CallID,
		Name:     string(r.Name),
		Response: r.Response(),
	}
}

// genaiTools converts the tool declarations into one genai tool.
func genaiTools(decls []domain.ToolDeclaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}

	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(d.Params)),
		}
		for _, p := range d.Params {
			t := genai.TypeString
			if p.Type == domain.ParamNumber {
				t = genai.TypeNumber
			}
			schema.Properties[p.Name] = &genai.Schema{Type: t, Description: p.Description}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}

		fns = append(fns, &genai.FunctionDeclaration{
			Name:        string(d.Name),
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

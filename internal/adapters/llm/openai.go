package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAIGateway serves text sessions and titles from any OpenAI compatible
// chat completions endpoint. It has no live voice support.
type OpenAIGateway struct {
	client openai.Client
	model  string
	tools  []openai.ChatCompletionToolUnionParam
}

func NewOpenAIGateway(cfg OpenAIConfig, decls []domain.ToolDeclaration) *OpenAIGateway {
	var options []option.RequestOption
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIGateway{
		client: openai.NewClient(options...),
		model:  model,
		tools:  openaiTools(decls),
	}
}

func (g *OpenAIGateway) CreateSession(_ context.Context, prior []domain.Message) (domain.ModelSession, error) {
	param := openai.ChatCompletionNewParams{
		Model: g.model,
		Tools: g.tools,
	}
	param.Messages = append(param.Messages, openai.SystemMessage(SystemInstruction))
	for _, m := range prior {
		switch m.Sender {
		case domain.SenderAI:
			param.Messages = append(param.Messages, openai.AssistantMessage(m.Text))
		default:
			param.Messages = append(param.Messages, openai.UserMessage(m.Text))
		}
	}
	return &openaiSession{client: g.client, param: param}, nil
}

func (g *OpenAIGateway) ProposeTitle(ctx context.Context, seed string) (string, error) {
	res, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(TitlePrompt(seed))},
	})
	if err != nil {
		return "", fmt.Errorf("openai generate title: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

// openaiSession keeps the whole message history client side. Calls on one
// session are serialized by the caller.
type openaiSession struct {
	client openai.Client
	param  openai.ChatCompletionNewParams
}

func (s *openaiSession) Send(ctx context.Context, prompt string) (domain.ModelReply, error) {
	return s.complete(ctx, openai.UserMessage(prompt))
}

func (s *openaiSession) SendToolResults(ctx context.Context, results []domain.ToolResult) (domain.ModelReply, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(results))
	for _, r := range results {
		payload, err := json.Marshal(r.Response())
		if err != nil {
			payload = []byte(`{"error":"tool result could not be encoded","code":"tool_failed"}`)
		}
		msgs = append(msgs, openai.ToolMessage(string(payload), r.CallID))
	}
	return s.complete(ctx, msgs...)
}

// complete appends msgs, runs one completion and records the assistant turn.
// On failure the history is left as it was.
func (s *openaiSession) complete(ctx context.Context, msgs ...openai.ChatCompletionMessageParamUnion) (domain.ModelReply, error) {
	base := len(s.param.Messages)
	s.param.Messages = append(s.param.Messages, msgs...)

	res, err := s.client.Chat.Completions.New(ctx, s.param)
	if err != nil {
		s.param.Messages = s.param.Messages[:base]
		return domain.ModelReply{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(res.Choices) == 0 {
		s.param.Messages = s.param.Messages[:base]
		return domain.ModelReply{}, fmt.Errorf("openai returned no choices")
	}

	message := res.Choices[0].Message
	s.param.Messages = append(s.param.Messages, message.ToParam())

	if len(message.ToolCalls) > 0 {
		calls := make([]domain.ToolCall, 0, len(message.ToolCalls))
		for _, tc := range message.ToolCalls {
			args := map[string]any{}
			if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					// the dispatcher reports the missing arguments to the model
					args = map[string]any{}
				}
			}
			calls = append(calls, domain.ToolCall{
				ID:   tc.ID,
				Name: domain.ToolName(tc.Function.Name),
				Args: args,
			})
		}
		return domain.ModelReply{ToolCalls: calls}, nil
	}

	if message.Content == "" {
		return domain.ModelReply{}, fmt.Errorf("openai returned empty text")
	}
	return domain.ModelReply{Text: message.Content}, nil
}

func openaiTools(decls []domain.ToolDeclaration) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(decls))
	for _, d := range decls {
		properties := make(map[string]any, len(d.Params))
		required := make([]string, 0, len(d.Params))
		for _, p := range d.Params {
			properties[p.Name] = map[string]string{
				"type":        string(p.Type),
				"description": p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}

		tools = append(tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        string(d.Name),
					Description: openai.String(d.Description),
					Parameters: openai.FunctionParameters{
						"type":       "object",
						"properties": properties,
						"required":   required,
					},
				},
			},
		})
	}
	return tools
}

package domain

// ToolName identifies one of the operations the model may invoke.
type ToolName string

const (
	ToolGetOrderStatus       ToolName = "getOrderStatus"
	ToolListUserOrders       ToolName = "listUserOrders"
	ToolFindProducts         ToolName = "findProducts"
	ToolSubmitFeedback       ToolName = "submitFeedback"
	ToolListUserTransactions ToolName = "listUserTransactions"
	ToolContactHumanSupport  ToolName = "contactHumanSupport"
)

// ToolCall is a request from the model to run a named operation. It only
// lives for one exchange with the gateway.
type ToolCall struct {
	ID   string
	Name ToolName
	Args map[string]any
}

// ToolError is the structured error carried back to the model instead of a
// result.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// ToolResult pairs 1:1 with a ToolCall.
type ToolResult struct {
	CallID string
	Name   ToolName
	Output any
	Err    *ToolError
}

// Failed reports whether the call ended with a structured error.
func (r ToolResult) Failed() bool {
	return r.Err != nil
}

// Response renders the payload sent back to the model.
func (r ToolResult) Response() map[string]any {
	if r.Err != nil {
		return map[string]any{
			"error": r.Err.Message,
			"code":  r.Err.Code,
		}
	}
	return map[string]any{"result": r.Output}
}

// ParamType is the JSON-schema type of a tool parameter.
type ParamType string

const (
	ParamNumber ParamType = "number"
	ParamString ParamType = "string"
)

type ToolParam struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// ToolDeclaration describes a tool to the model.
type ToolDeclaration struct {
	Name        ToolName
	Description string
	Params      []ToolParam
}

package llm

import (
	"testing"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

func TestOpenAIToolsSchema(t *testing.T) {
	tools := openaiTools([]domain.ToolDeclaration{{
		Name:        domain.ToolGetOrderStatus,
		Description: "Get the status of a specific order by its ID.",
		Params: []domain.ToolParam{
			{Name: "orderId", Type: domain.ParamNumber, Description: "The ID of the order to check.", Required: true},
		},
	}})
	if len(tools) != 1 || tools[0].OfFunction == nil {
		t.Fatalf("expected one function tool, got %+v", tools)
	}

	fn := tools[0].OfFunction.Function
	if fn.Name != "getOrderStatus" {
		t.Fatalf("unexpected name %q", fn.Name)
	}
	props, ok := fn.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", fn.Parameters["properties"])
	}
	prop, ok := props["orderId"].(map[string]string)
	if !ok || prop["type"] != "number" {
		t.Fatalf("unexpected orderId property: %+v", props["orderId"])
	}
	required, ok := fn.Parameters["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "orderId" {
		t.Fatalf("unexpected required list: %+v", fn.Parameters["required"])
	}
}

package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCase(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in                   string
		pascal, camel, snake string
	}{
		{in: "listPets", pascal: "ListPets", camel: "listPets", snake: "list_pets"},
		{in: "Widget", pascal: "Widget", camel: "widget", snake: "widget"},
		{in: "get-widget by id", pascal: "GetWidgetById", camel: "getWidgetById", snake: "get_widget_by_id"},
		{in: "X-Request-ID", pascal: "XRequestId", camel: "xRequestId", snake: "x_request_id"},
		{in: "type", pascal: "Type", camel: "type_", snake: "type"},
		{in: "200", pascal: "X200", camel: "v200", snake: "200"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.pascal, Pascal(tt.in))
			assert.Equal(t, tt.camel, Camel(tt.in))
			assert.Equal(t, tt.snake, Snake(tt.in))
		})
	}
}

func TestFile(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "pet_store", File("Pet Store"))
	assert.Equal(t, "api", File("  "))
}

func TestAppend(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "GetResult200", Append("GetResult", "200"))
	assert.Equal(t, "GetResultDefault", Append("GetResult", "default"))
}

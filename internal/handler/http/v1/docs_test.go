package v1

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/shenikar/emergency_response_system/docs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

var ginParam = regexp.MustCompile(`:([A-Za-z]+)`)

// Каждый зарегистрированный маршрут описан в OpenAPI, и наоборот
func TestSwaggerDocCoversRoutes(t *testing.T) {
	env := newTestEnv(t)

	raw, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Equal(t, "/api/v1", doc.BasePath)

	documented := make([]string, 0)
	for path, methods := range doc.Paths {
		for method := range methods {
			documented = append(documented, strings.ToUpper(method)+" "+path)
		}
	}

	registered := make([]string, 0)
	for _, r := range env.router.Routes() {
		path := ginParam.ReplaceAllString(strings.TrimPrefix(r.Path, doc.BasePath), "{$1}")
		registered = append(registered, r.Method+" "+path)
	}

	sort.Strings(documented)
	sort.Strings(registered)
	assert.Equal(t, registered, documented)
}

func TestSwaggerDocStatusUpdateBody(t *testing.T) {
	raw, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Definitions map[string]struct {
			Required   []string                   `json:"required"`
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	def, ok := doc.Definitions["v1.UpdateStatusRequest"]
	require.True(t, ok)
	assert.Equal(t, []string{"status"}, def.Required)
	assert.Contains(t, def.Properties, "update_message")
	assert.Contains(t, def.Properties, "message")
}

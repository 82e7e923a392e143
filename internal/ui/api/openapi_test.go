package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentValidates(t *testing.T) {
	doc := Document("1.2.3", true)
	require.NoError(t, doc.Validate(context.Background()))
	assert.Equal(t, "1.2.3", doc.Info.Version)
	assert.NotNil(t, doc.Paths.Find("/metrics"))

	bare := Document("", false)
	require.NoError(t, bare.Validate(context.Background()))
	assert.Equal(t, "dev", bare.Info.Version)
	assert.Nil(t, bare.Paths.Find("/metrics"))
}

func TestDocumentCoversEveryRoute(t *testing.T) {
	doc := Document("test", true)
	seen := make(map[string]bool)
	for _, rt := range routes {
		item := doc.Paths.Find(rt.path)
		require.NotNil(t, item, "missing path %s", rt.path)
		op := item.GetOperation(rt.method)
		require.NotNil(t, op, "missing %s %s", rt.method, rt.path)
		assert.Equal(t, rt.id, op.OperationID)
		assert.False(t, seen[rt.id], "duplicate operation id %s", rt.id)
		seen[rt.id] = true
		assert.NotNil(t, op.Responses.Status(http.StatusOK))
		if rt.body != nil {
			assert.NotNil(t, op.RequestBody)
		}
	}
	for _, path := range []string{"/health", "/metrics", "/openapi.json"} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
}

func TestServedDocumentLoads(t *testing.T) {
	f := newFixture(t, nil, Options{Version: "9.9.9"}, sampleTags)
	rec := f.do(t, http.MethodGet, "/openapi.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rec.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.Equal(t, "9.9.9", doc.Info.Version)

	op := doc.Paths.Find("/api/references").Get
	require.NotNil(t, op)
	var names []string
	for _, p := range op.Parameters {
		names = append(names, p.Value.Name)
	}
	assert.ElementsMatch(t, []string{SessionHeader, "symbol", "path", "line", "scope"}, names)
}

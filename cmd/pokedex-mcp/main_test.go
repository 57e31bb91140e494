package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	switch tc := res.Content[0].(type) {
	case mcp.TextContent:
		return tc.Text
	case *mcp.TextContent:
		return tc.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestGetPokemon_CallsAPI(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotKey = r.Header.Get("X-API-Key")
		_, _ = io.WriteString(w, `{"ok":true,"data":{"records":{"id":"0025","type":"Electric"}}}`)
	}))
	defer srv.Close()

	res := callTool(t, handleGetPokemon(srv.URL, "secret"), map[string]any{"name": " Pikachu "})

	assert.False(t, res.IsError)
	assert.Equal(t, "/v1/pokemon/pikachu", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Contains(t, resultText(t, res), `"id": "0025"`)
}

func TestGetPokemon_RequiresName(t *testing.T) {
	res := callTool(t, handleGetPokemon("http://127.0.0.1:0", "secret"), map[string]any{})
	assert.True(t, res.IsError)
}

func TestListPokemon_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = io.WriteString(w, `{"ok":false,"error":{"code":"NAVIGATION_TIMEOUT","message":"page did not become ready within 30s"}}`)
	}))
	defer srv.Close()

	res := callTool(t, handleListPokemon(srv.URL, "secret"), nil)

	assert.True(t, res.IsError)
	assert.Equal(t, "[NAVIGATION_TIMEOUT] page did not become ready within 30s", resultText(t, res))
}

func TestListPokemon_IncludesCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true,"data":{"count":1,"records":[{"id":"0001","name":"Bulbasaur","type":"Grass Poison"}]}}`)
	}))
	defer srv.Close()

	res := callTool(t, handleListPokemon(srv.URL, "secret"), nil)

	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Count: 1")
}

func TestExtractPage_RejectsInvalidJSON(t *testing.T) {
	res := callTool(t, handleExtractPage("http://127.0.0.1:0", "secret"), map[string]any{"spec": "{not json"})
	assert.True(t, res.IsError)
}

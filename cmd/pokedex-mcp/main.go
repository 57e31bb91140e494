package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// envelope mirrors the Pokédex API result envelope.
type envelope struct {
	OK   bool `json:"ok"`
	Data *struct {
		Count   *int            `json:"count"`
		Records json.RawMessage `json:"records"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("POKEDEX_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	apiURL = strings.TrimRight(apiURL, "/")
	token := os.Getenv("POKEDEX_API_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "POKEDEX_API_TOKEN is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pokedex",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	listTool := mcp.NewTool("list_pokemon",
		mcp.WithDescription("List every Pokémon in the national Pokédex with its number, name and types. Renders the listing page in a headless browser."),
	)
	s.AddTool(listTool, handleListPokemon(apiURL, token))

	getTool := mcp.NewTool("get_pokemon",
		mcp.WithDescription("Get one Pokémon's vitals (number, type, species, height, weight) and its evolution lines."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The Pokémon's name as used in Pokédex URLs, e.g. 'pikachu' or 'mr-mime'"),
		),
	)
	s.AddTool(getTool, handleGetPokemon(apiURL, token))

	extractTool := mcp.NewTool("extract_page",
		mcp.WithDescription("Render any page in a headless browser and extract fields with a declarative CSS-selector mapping."),
		mcp.WithString("spec",
			mcp.Required(),
			mcp.Description(`JSON extraction spec: {"url": "...", "readiness": {"kind": "selectorPresent|navigationSettled|both", "selector": "..."}, "rows": "...", "fields": [{"key": "...", "selector": "...", "scope": "document|row", "multiplicity": "one|many", "transform": "text|listOfText", "item": "..."}]}`),
		),
	)
	s.AddTool(extractTool, handleExtractPage(apiURL, token))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the Pokédex API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, target, token string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// toolResult turns an API response body into a tool result.
func toolResult(respBody []byte) *mcp.CallToolResult {
	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err))
	}
	if !env.OK {
		errMsg := "extraction failed"
		if env.Error != nil {
			errMsg = fmt.Sprintf("[%s] %s", env.Error.Code, env.Error.Message)
		}
		return mcp.NewToolResultError(errMsg)
	}
	if env.Data == nil {
		return mcp.NewToolResultText("null")
	}

	var out bytes.Buffer
	if env.Data.Count != nil {
		fmt.Fprintf(&out, "Count: %d\n\n", *env.Data.Count)
	}
	if err := json.Indent(&out, env.Data.Records, "", "  "); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to format records: %v", err))
	}
	return mcp.NewToolResultText(out.String())
}

func handleListPokemon(apiURL, token string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		respBody, err := apiDo(ctx, client, http.MethodGet, apiURL+"/v1/pokemon", token, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResult(respBody), nil
	}
}

func handleGetPokemon(apiURL, token string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil || strings.TrimSpace(name) == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		target := apiURL + "/v1/pokemon/" + url.PathEscape(strings.ToLower(strings.TrimSpace(name)))
		respBody, err := apiDo(ctx, client, http.MethodGet, target, token, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResult(respBody), nil
	}
}

func handleExtractPage(apiURL, token string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		specStr, err := request.RequireString("spec")
		if err != nil {
			return mcp.NewToolResultError("spec is required"), nil
		}

		var spec json.RawMessage
		if err := json.Unmarshal([]byte(specStr), &spec); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("spec must be valid JSON: %v", err)), nil
		}

		payload := map[string]any{"spec": spec}
		respBody, err := apiDo(ctx, client, http.MethodPost, apiURL+"/v1/extract", token, payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResult(respBody), nil
	}
}

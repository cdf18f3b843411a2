package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/datapeek/datapeek/internal/query"
)

func TestStripMarkdownSQL(t *testing.T) {
	got := stripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
}

func TestBuildOpenAIPayloadMentionsDataTable(t *testing.T) {
	payload, err := buildOpenAIPayload("gpt-5.2", 0, Request{
		Prompt:  "rows where label is alpha",
		Columns: []query.Column{{Name: "id", Type: "BIGINT"}, {Name: "label", Type: "VARCHAR"}},
		Sample:  map[string]any{"id": 1, "label": "alpha"},
	})
	if err != nil {
		t.Fatalf("buildOpenAIPayload() error = %v", err)
	}
	messages, ok := payload["messages"].([]map[string]string)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %#v", payload["messages"])
	}
	if !strings.Contains(messages[0]["content"], "table named data") {
		t.Fatalf("system prompt = %q", messages[0]["content"])
	}
	user := messages[1]["content"]
	if !strings.Contains(user, `"label"`) || !strings.Contains(user, "Example row") {
		t.Fatalf("user prompt = %q", user)
	}
	if !strings.Contains(user, "rows where label is alpha") {
		t.Fatalf("user prompt missing request: %q", user)
	}
}

func TestTranslateParsesChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["model"] != "gpt-5.2" {
			t.Errorf("model = %v", body["model"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "```sql\nSELECT label FROM data\n```"}},
			},
		})
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{
		BaseURL: server.URL + "/v1",
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	result, err := translator.Translate(context.Background(), Request{
		Prompt:  "labels",
		Columns: []query.Column{{Name: "label", Type: "VARCHAR"}},
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT label FROM data" {
		t.Fatalf("sql = %q", result.SQL)
	}
	if result.Model != "gpt-5.2" || result.Provider != "openai-compatible" {
		t.Fatalf("result = %#v", result)
	}
}

func TestTranslateRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	if _, err := translator.Translate(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatalf("Translate() expected error")
	}
}

func TestNewOpenAITranslatorRequiresCredentials(t *testing.T) {
	if _, err := NewOpenAITranslator(OpenAIConfig{BaseURL: "https://api.openai.com/v1"}); err == nil {
		t.Fatalf("expected api key error")
	}
	if _, err := NewOpenAITranslator(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatalf("expected base URL error")
	}
}

// Package testutil provides common test utilities and helpers for DraftPipe tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BTreeMap/DraftPipe/internal/api"
	"github.com/BTreeMap/DraftPipe/internal/store"
	"github.com/BTreeMap/DraftPipe/internal/workflow"
	"github.com/openai/openai-go"
)

// Agent markers found in the system prompts, used to route scripted
// responses to the node that asked.
const (
	MarkerParser       = "input parsing agent"
	MarkerIntent       = "intent detection agent"
	MarkerTone         = "tone stylist"
	MarkerDraft        = "draft writer"
	MarkerPersonalizer = "personalization agent"
	MarkerValidator    = "review and validation agent"
	MarkerMemory       = "memory agent"
)

// ScriptedGenerator is a mock GenAI client that answers each agent from a
// per-marker FIFO script. When a marker's queue runs dry the last entry is
// replayed, so a single scripted answer covers repeated calls.
type ScriptedGenerator struct {
	mu      sync.Mutex
	scripts map[string][]string
	errs    map[string]error
	Calls   []string
}

// NewScriptedGenerator creates an empty scripted generator.
func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{
		scripts: make(map[string][]string),
		errs:    make(map[string]error),
	}
}

// Script queues responses for the agent identified by marker.
func (g *ScriptedGenerator) Script(marker string, responses ...string) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[marker] = append(g.scripts[marker], responses...)
	return g
}

// FailWith makes every call from the agent identified by marker return err.
func (g *ScriptedGenerator) FailWith(marker string, err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[marker] = err
	return g
}

// GenerateWithMessages implements genai.ClientInterface.
func (g *ScriptedGenerator) GenerateWithMessages(_ context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	system := SystemText(messages)
	for marker := range g.scripts {
		if containsMarker(system, marker) {
			g.Calls = append(g.Calls, marker)
			if err := g.errs[marker]; err != nil {
				return "", err
			}
			queue := g.scripts[marker]
			if len(queue) == 0 {
				return "", nil
			}
			response := queue[0]
			if len(queue) > 1 {
				g.scripts[marker] = queue[1:]
			}
			return response, nil
		}
	}
	for marker, err := range g.errs {
		if containsMarker(system, marker) {
			g.Calls = append(g.Calls, marker)
			return "", err
		}
	}
	g.Calls = append(g.Calls, "unmatched")
	return "", nil
}

// SystemText extracts the concatenated system message text from a request.
func SystemText(messages []openai.ChatCompletionMessageParamUnion) string {
	var out string
	for _, m := range messages {
		if m.OfSystem != nil {
			out += m.OfSystem.Content.OfString.Value + "\n"
		}
	}
	return out
}

// UserText extracts the concatenated user message text from a request.
func UserText(messages []openai.ChatCompletionMessageParamUnion) string {
	var out string
	for _, m := range messages {
		if m.OfUser != nil {
			out += m.OfUser.Content.OfString.Value + "\n"
		}
	}
	return out
}

func containsMarker(s, marker string) bool {
	return marker != "" && bytes.Contains([]byte(s), []byte(marker))
}

// NewTestServer creates a test API server with in-memory dependencies and
// the given scripted generator driving every agent.
func NewTestServer(gen *ScriptedGenerator) (*api.Server, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	wf := workflow.New(gen, gen, st)
	return api.NewServer(wf, st), st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, url, nil)
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

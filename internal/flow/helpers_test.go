package flow

import (
	"context"
	"io"
	"log/slog"

	"github.com/openai/openai-go"
)

// mockGenerator is a canned GenAI client for node tests.
type mockGenerator struct {
	response string
	err      error
	calls    int
	lastMsgs []openai.ChatCompletionMessageParamUnion
}

func (m *mockGenerator) GenerateWithMessages(_ context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.calls++
	m.lastMsgs = messages
	return m.response, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

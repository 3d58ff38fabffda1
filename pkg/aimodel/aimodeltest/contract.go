// Package aimodeltest provides shared contract tests that verify any
// aimodel.Provider implementation behaves correctly. Every adapter's test
// file should call TestProviderContract to ensure conformance.
//
// The factory is expected to return a provider wired to a test double
// (e.g. an httptest server); these tests make real calls against it.
package aimodeltest

import (
	"context"
	"testing"

	"github.com/modelmux/modelmux/pkg/aimodel"
)

// TestProviderContract runs a suite of behavioral contract tests against
// any aimodel.Provider implementation. Call this from each adapter's _test.go:
//
//	func TestContract(t *testing.T) {
//	    aimodeltest.TestProviderContract(t, func() aimodel.Provider { return newTestProvider(t, srv.URL) })
//	}
func TestProviderContract(t *testing.T, factory func() aimodel.Provider) {
	t.Helper()

	t.Run("Chat_returns_non_empty_response", func(t *testing.T) {
		p := factory()
		resp, err := p.Chat(context.Background(), []aimodel.Message{
			{Role: aimodel.RoleUser, Content: "Say hello in exactly three words"},
		}, aimodel.WithModel("contract-test-model"))
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if resp == nil {
			t.Fatal("Chat() returned nil response")
		}
		if resp.Content == "" {
			t.Error("Chat() returned empty content")
		}
		if resp.Model == "" {
			t.Error("Response.Model must not be empty")
		}
	})

	t.Run("Chat_with_conversation_history", func(t *testing.T) {
		p := factory()
		messages := []aimodel.Message{
			{Role: aimodel.RoleSystem, Content: "You are a helpful assistant. Be concise."},
			{Role: aimodel.RoleUser, Content: "What is 2+2? Reply with just the number."},
		}
		resp, err := p.Chat(context.Background(), messages, aimodel.WithModel("contract-test-model"))
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if resp == nil {
			t.Fatal("Chat() returned nil response")
		}
		if resp.Content == "" {
			t.Error("Chat() returned empty content")
		}
	})

	t.Run("Chat_cancelled_context", func(t *testing.T) {
		p := factory()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Chat(ctx, []aimodel.Message{
			{Role: aimodel.RoleUser, Content: "Write a very long essay about everything"},
		}, aimodel.WithModel("contract-test-model"))
		if err == nil {
			t.Error("Chat() with cancelled context should return error")
		}
	})

	t.Run("Chat_empty_messages_returns_error", func(t *testing.T) {
		p := factory()
		_, err := p.Chat(context.Background(), nil)
		if err == nil {
			t.Error("Chat() with empty messages should return error")
		}
		if code := aimodel.Code(err); err != nil && code != aimodel.ErrCodeInvalidRequest {
			t.Errorf("Chat() empty messages error code = %q, want %q", code, aimodel.ErrCodeInvalidRequest)
		}
	})
}

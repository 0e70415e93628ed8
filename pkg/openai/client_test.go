package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChatCompletion(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Add hooks"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	c := New("sk-test", WithBaseURL(srv.URL+"/v1/"))
	resp, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:    GPT4,
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, GPT4, got.Model)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	content, err := resp.Content()
	require.NoError(t, err)
	assert.Equal(t, "Add hooks", content)
}

func TestCreateChatCompletionAPIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantType    string
	}{
		{
			name:        "error envelope",
			status:      http.StatusTooManyRequests,
			body:        `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`,
			wantMessage: "Rate limit reached",
			wantType:    "requests",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        "upstream down\n",
			wantMessage: "upstream down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := New("sk-test", WithBaseURL(srv.URL)).CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: GPT4})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantType, apiErr.Type)
		})
	}
}

func TestResponseContent(t *testing.T) {
	tests := []struct {
		name    string
		resp    ChatCompletionResponse
		want    string
		wantErr error
	}{
		{"no choices", ChatCompletionResponse{}, "", ErrNoChoices},
		{"stop", ChatCompletionResponse{Choices: []Choice{{Message: Message{Content: "done"}, FinishReason: FinishStop}}}, "done", nil},
		{"length", ChatCompletionResponse{Choices: []Choice{{Message: Message{Content: "half"}, FinishReason: FinishLength}}}, "half", ErrTruncated},
		{"filtered", ChatCompletionResponse{Choices: []Choice{{Message: Message{Content: "x"}, FinishReason: FinishContentFilter}}}, "", ErrFiltered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resp.Content()
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

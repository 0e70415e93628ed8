package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/saint0x/pullmate/pkg/log"
	"github.com/saint0x/pullmate/pkg/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChat implements ChatCompleter
type mockChat struct {
	response string
	finish   string
	err      error
	last     openai.ChatCompletionRequest
}

func (m *mockChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	finish := m.finish
	if finish == "" {
		finish = openai.FinishStop
	}
	return &openai.ChatCompletionResponse{
		Choices: []openai.Choice{{
			Message:      openai.Message{Role: openai.RoleAssistant, Content: m.response},
			FinishReason: finish,
		}},
	}, nil
}

func testInput() DraftInput {
	return DraftInput{
		Repository: "octo/app",
		Base:       "main",
		Head:       "feature/webhooks",
		Commits: []Commit{
			{Hash: "bbbbbbb", Message: "feat(server): handle webhooks\n\nlong body", Author: "Octo", FilesChanged: 3},
			{Hash: "aaaaaaa", Message: "chore: scaffolding", Author: "Octo", FilesChanged: 1},
		},
		TemplateBody: "## Summary\n\n## Changes\n- bbbbbbb feat(server): handle webhooks",
	}
}

func TestDraftWithAI(t *testing.T) {
	chat := &mockChat{
		response: "feat(server): Add webhook support\n\nAdded webhook support to server:\n- New handleWebhook function\n- Support for POST requests",
	}
	gen := New(log.Discard(), chat)

	pr, err := gen.Draft(context.Background(), testInput())
	require.NoError(t, err)

	assert.True(t, pr.Generated)
	assert.Equal(t, "feat(server): Add webhook support", pr.Title)
	assert.Equal(t, "Added webhook support to server:\n- New handleWebhook function\n- Support for POST requests", pr.Description)

	assert.Equal(t, draftMaxTokens, chat.last.MaxTokens)
	require.Len(t, chat.last.Messages, 2)
	assert.Equal(t, openai.RoleSystem, chat.last.Messages[0].Role)
	prompt := chat.last.Messages[1].Content
	assert.Contains(t, prompt, "Merging feature/webhooks into main")
	assert.Contains(t, prompt, "- bbbbbbb feat(server): handle webhooks (Octo, 3 files)")
	assert.NotContains(t, prompt, "long body")
	assert.Contains(t, prompt, "Template:\n## Summary")
}

func TestDraftFallsBackOnError(t *testing.T) {
	gen := New(log.Discard(), &mockChat{err: io.ErrUnexpectedEOF})

	pr, err := gen.Draft(context.Background(), testInput())
	require.NoError(t, err)

	assert.False(t, pr.Generated)
	assert.Equal(t, "Merge feature/webhooks into main", pr.Title)
	assert.True(t, strings.HasPrefix(pr.Description, "## Summary"))
}

func TestDraftFallsBackOnTruncatedReply(t *testing.T) {
	gen := New(log.Discard(), &mockChat{response: "Add hooks\n\nThe server now", finish: openai.FinishLength})

	pr, err := gen.Draft(context.Background(), testInput())
	require.NoError(t, err)

	assert.False(t, pr.Generated)
	assert.Equal(t, "Merge feature/webhooks into main", pr.Title)
}

func TestDraftWithoutModel(t *testing.T) {
	gen := New(log.Discard(), nil)
	assert.False(t, gen.Enabled())

	in := testInput()
	in.Commits = in.Commits[:1]
	in.TemplateBody = ""

	pr, err := gen.Draft(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "feat(server): handle webhooks", pr.Title)
	assert.Equal(t, "- bbbbbbb feat(server): handle webhooks", pr.Description)
}

func TestDraftRequiresCommits(t *testing.T) {
	gen := New(log.Discard(), nil)
	in := testInput()
	in.Commits = nil

	_, err := gen.Draft(context.Background(), in)
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "2 commits from `feature/webhooks` into `main`, touching 4 files.", Summary(testInput()))

	in := testInput()
	in.Commits = in.Commits[1:]
	assert.Equal(t, "1 commit from `feature/webhooks` into `main`, touching 1 files.", Summary(in))
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"fix: typo", "fix: typo"},
		{"feat: hooks\n\nbody", "feat: hooks"},
		{"  padded  \nbody", "padded"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FirstLine(tt.message); got != tt.want {
			t.Errorf("FirstLine(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestGeneratorOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"# Add hooks\n\nBody text"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	gen := New(log.Discard(), openai.New("sk-test", openai.WithBaseURL(srv.URL)))
	pr, err := gen.Draft(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "Add hooks", pr.Title)
	assert.Equal(t, "Body text", pr.Description)
}

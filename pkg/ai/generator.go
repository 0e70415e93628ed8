package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/saint0x/pullmate/pkg/log"
	"github.com/saint0x/pullmate/pkg/openai"
)

const systemPrompt = `You are an AI assistant helping to write clear and descriptive pull requests.
Reply with the pull request title on the first line, a blank line, then the description in Markdown.
Keep the structure of the template you are given and fill in its sections from the commits.`

// draftMaxTokens bounds the model's reply
const draftMaxTokens = 800

// ChatCompleter is the part of the OpenAI client the generator needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

// Generator drafts PR titles and descriptions
type Generator struct {
	logger *log.Logger
	chat   ChatCompleter
	model  string
}

// New creates a Generator. A nil chat client yields template-only drafts.
func New(logger *log.Logger, chat ChatCompleter) *Generator {
	return &Generator{
		logger: logger,
		chat:   chat,
		model:  openai.GPT4,
	}
}

// Enabled reports whether drafts go through the model
func (g *Generator) Enabled() bool {
	return g.chat != nil
}

// Draft produces a title and description. Model failures fall back to the
// template-only draft.
func (g *Generator) Draft(ctx context.Context, in DraftInput) (*PRContent, error) {
	if len(in.Commits) == 0 {
		return nil, fmt.Errorf("no commits between %s and %s", in.Base, in.Head)
	}

	if g.chat == nil {
		return fallbackDraft(in), nil
	}

	content, err := g.generateWithAI(ctx, userPrompt(in))
	if err != nil {
		g.logger.Warning("AI draft failed, using template: %v", err)
		return fallbackDraft(in), nil
	}

	pr := parseContent(content)
	if pr.Title == "" {
		return fallbackDraft(in), nil
	}
	pr.Generated = true
	return pr, nil
}

func userPrompt(in DraftInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\nMerging %s into %s\n\nCommits (newest first):\n", in.Repository, in.Head, in.Base)
	for _, c := range in.Commits {
		fmt.Fprintf(&b, "- %s %s (%s, %d files)\n", c.Hash, FirstLine(c.Message), c.Author, c.FilesChanged)
	}
	if in.TemplateBody != "" {
		fmt.Fprintf(&b, "\nTemplate:\n%s", in.TemplateBody)
	}
	return b.String()
}

// generateWithAI makes a request to the chat model. A reply cut off at the
// token limit is treated as a failure so a half-written description never
// reaches the user.
func (g *Generator) generateWithAI(ctx context.Context, prompt string) (string, error) {
	resp, err := g.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.Message{
			{Role: openai.RoleSystem, Content: systemPrompt},
			{Role: openai.RoleUser, Content: prompt},
		},
		MaxTokens:   draftMaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate PR: %w", err)
	}
	g.logger.Debug("AI draft used %d prompt and %d completion tokens", resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	content, err := resp.Content()
	if err != nil {
		return "", fmt.Errorf("failed to generate PR: %w", err)
	}
	return content, nil
}

// parseContent splits a reply into title (first non-empty line) and description
func parseContent(content string) *PRContent {
	lines := strings.Split(content, "\n")
	pr := &PRContent{}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if pr.Title == "" {
			pr.Title = strings.TrimSpace(strings.TrimLeft(line, "# "))
			continue
		}
		pr.Description = strings.TrimSpace(strings.Join(lines[i:], "\n"))
		break
	}

	return pr
}

func fallbackDraft(in DraftInput) *PRContent {
	title := FirstLine(in.Commits[0].Message)
	if len(in.Commits) > 1 {
		title = fmt.Sprintf("Merge %s into %s", in.Head, in.Base)
	}

	desc := in.TemplateBody
	if strings.TrimSpace(desc) == "" {
		desc = CommitList(in.Commits)
	}
	return &PRContent{Title: title, Description: strings.TrimSpace(desc)}
}

// Summary is a one-line description of the change set
func Summary(in DraftInput) string {
	files := 0
	for _, c := range in.Commits {
		files += c.FilesChanged
	}
	noun := "commits"
	if len(in.Commits) == 1 {
		noun = "commit"
	}
	return fmt.Sprintf("%d %s from `%s` into `%s`, touching %d files.", len(in.Commits), noun, in.Head, in.Base, files)
}

// CommitList renders commits as a Markdown bullet list
func CommitList(commits []Commit) string {
	var b strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&b, "- %s %s\n", c.Hash, FirstLine(c.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FirstLine returns the subject line of a commit message
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

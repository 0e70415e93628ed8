package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
)

// CreateWebhook subscribes targetURL to the given repository events and
// returns the new hook ID. On failure the upstream status code is returned
// alongside the error (0 when the request never got a response).
func (c *Client) CreateWebhook(ctx context.Context, owner, repo, targetURL, secret string, events []string) (int64, int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, 0, err
	}

	config := map[string]interface{}{
		"url":          targetURL,
		"content_type": "json",
	}
	if secret != "" {
		config["secret"] = secret
	}

	hook, resp, err := c.client.Repositories.CreateHook(ctx, owner, repo, &github.Hook{
		Name:   github.String("web"),
		Active: github.Bool(true),
		Events: events,
		Config: config,
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return 0, status, fmt.Errorf("failed to create webhook: %w", err)
	}

	return hook.GetID(), resp.StatusCode, nil
}

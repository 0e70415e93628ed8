package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/saint0x/pullmate/pkg/ai"
	"github.com/saint0x/pullmate/pkg/compare"
	"github.com/saint0x/pullmate/pkg/github"
	"github.com/spf13/cobra"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <owner/repo>",
		Short: "Show the commits head has that base does not",
		Long: "Compares two branches of a GitHub repository and prints the newest commits on head, " +
			"the way the web view shows them. The base defaults to the repository's default branch.",
		Args: cobra.ExactArgs(1),
		RunE: runCompare,
	}

	// Flags in alphabetical order for deterministic help output
	cmd.Flags().String("api-url", "", "GitHub API root (GitHub Enterprise)")
	cmd.Flags().String("base", "", "base branch (default: the repository's default branch)")
	cmd.Flags().String("head", "", "head branch")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	cmd.Flags().Duration("timeout", time.Minute, "give up after this long")
	cmd.Flags().String("token", os.Getenv("GITHUB_TOKEN"), "GitHub access token")
	_ = cmd.MarkFlagRequired("head")

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	logger := loggerFor(cmd)
	flags := cmd.Flags()
	apiURL, _ := flags.GetString("api-url")
	base, _ := flags.GetString("base")
	head, _ := flags.GetString("head")
	asJSON, _ := flags.GetBool("json")
	timeout, _ := flags.GetDuration("timeout")
	token, _ := flags.GetString("token")

	owner, repo, err := github.ParseRepoURL(args[0])
	if err != nil {
		return err
	}

	opts := []github.Option{
		github.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if apiURL != "" {
		opts = append(opts, github.WithBaseURL(apiURL))
	}
	gh, err := github.New(logger, token, opts...)
	if err != nil {
		return fmt.Errorf("%w (set GITHUB_TOKEN or --token)", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	user, err := gh.GetAuthenticatedUser(ctx)
	if err != nil {
		logger.Warning("Could not resolve the token's user: %v", err)
		user = owner
	}

	if base == "" {
		if base, err = gh.GetDefaultBranch(ctx, owner, repo); err != nil {
			return fmt.Errorf("failed to get default branch: %w", err)
		}
	}

	branches, err := gh.GetBranches(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("failed to list branches: %w", err)
	}

	view := compare.NewView(logger, compare.NewRepoFetcher(logger, gh, owner, repo, user), compare.ViewOptions{
		Branches: branches,
		Delay:    time.Millisecond,
	})
	defer view.Close()

	if err := view.Set(compare.BranchPair{Base: base, Head: head}); err != nil {
		return err
	}

	snap, err := view.Settled(ctx)
	if err != nil {
		return fmt.Errorf("comparison did not finish: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"base":              snap.Pair.Base,
			"head":              snap.Pair.Head,
			"state":             snap.Pair.State(),
			"commits":           snap.Result.Commits,
			"totalCommits":      snap.Result.TotalCommits,
			"truncated":         snap.Result.Truncated(),
			"totalFilesChanged": snap.Result.FilesChanged(),
		})
	}

	if snap.Pair.State() == compare.StateSameBranch {
		fmt.Fprintf(out, "%s and %s are the same branch\n", base, head)
		return nil
	}
	if len(snap.Result.Commits) == 0 {
		fmt.Fprintf(out, "No commits between %s and %s\n", base, head)
		return nil
	}

	for _, c := range snap.Result.Commits {
		fmt.Fprintf(out, "%2d %s %s\n", c.SequenceIndex, c.ShortHash, ai.FirstLine(c.Message))
		fmt.Fprintf(out, "   %s, %s, %d files\n", c.Author, c.Timestamp, c.FilesChanged)
	}
	if snap.Result.Truncated() {
		fmt.Fprintf(out, "Showing %d of %d commits\n", len(snap.Result.Commits), snap.Result.TotalCommits)
	}
	return nil
}

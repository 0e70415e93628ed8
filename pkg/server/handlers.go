package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/saint0x/pullmate/pkg/ai"
	"github.com/saint0x/pullmate/pkg/auth"
	"github.com/saint0x/pullmate/pkg/compare"
	"github.com/saint0x/pullmate/pkg/github"
	"github.com/saint0x/pullmate/pkg/hooks"
	"github.com/saint0x/pullmate/pkg/session"
	"github.com/saint0x/pullmate/pkg/timefmt"
	"golang.org/x/sync/errgroup"
)

// repoPageSize is how many repositories the list shows
const repoPageSize = 100

// settleTimeout bounds how long a request waits for a comparison
const settleTimeout = 45 * time.Second

type repoResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Description   string `json:"description"`
	IsPrivate     bool   `json:"isPrivate"`
	Stars         int    `json:"stars"`
	Forks         int    `json:"forks"`
	Language      string `json:"language"`
	LastActivity  string `json:"lastActivity"`
	URL           string `json:"url"`
	Owner         string `json:"owner"`
	DefaultBranch string `json:"defaultBranch"`
}

type repoDetailResponse struct {
	repoResponse
	Branches []string         `json:"branches"`
	Compare  snapshotResponse `json:"compare"`
}

type snapshotResponse struct {
	Base              string               `json:"base"`
	Head              string               `json:"head"`
	State             compare.State        `json:"state"`
	Loading           bool                 `json:"loading"`
	Pending           bool                 `json:"pending"`
	Commits           []compare.CommitView `json:"commits"`
	TotalCommits      int                  `json:"totalCommits"`
	Truncated         bool                 `json:"truncated"`
	TotalFilesChanged int                  `json:"totalFilesChanged"`
	PullRequestURL    string               `json:"pullRequestURL,omitempty"`
}

type compareRequest struct {
	Base *string `json:"base"`
	Head *string `json:"head"`
}

type draftRequest struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Base     string `json:"base"`
	Head     string `json:"head"`
	Template string `json:"template"`
}

type draftResponse struct {
	ai.PRContent
	Template string `json:"template"`
	Commits  int    `json:"commits"`
}

type createPRRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Base  string `json:"base"`
	Head  string `json:"head"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type subscribeRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// client resolves the signed-in user's session and GitHub client
func (s *Server) client(w http.ResponseWriter, r *http.Request) (*session.Session, GitHubClient, bool) {
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, false
	}
	gh, err := s.clients.For(sess.AccessToken)
	if err != nil {
		s.logger.Error("Failed to get GitHub client: %v", err)
		writeError(w, http.StatusServiceUnavailable, "github client unavailable")
		return nil, nil, false
	}
	return sess, gh, true
}

func (s *Server) toRepoResponse(r github.Repo) repoResponse {
	lastActivity := "unknown"
	if !r.UpdatedAt.IsZero() {
		lastActivity = timefmt.LastActivity(r.UpdatedAt, s.now())
	}
	language := r.Language
	if language == "" {
		language = "Unknown"
	}
	return repoResponse{
		ID:            r.ID,
		Name:          r.Name,
		FullName:      r.FullName,
		Description:   r.Description,
		IsPrivate:     r.Private,
		Stars:         r.Stars,
		Forks:         r.Forks,
		Language:      language,
		LastActivity:  lastActivity,
		URL:           r.URL,
		Owner:         r.Owner,
		DefaultBranch: r.DefaultBranch,
	}
}

func toSnapshotResponse(owner, repo string, snap compare.Snapshot) snapshotResponse {
	commits := snap.Result.Commits
	if commits == nil {
		commits = []compare.CommitView{}
	}
	resp := snapshotResponse{
		Base:              snap.Pair.Base,
		Head:              snap.Pair.Head,
		State:             snap.Pair.State(),
		Loading:           snap.Loading,
		Pending:           snap.Pending,
		Commits:           commits,
		TotalCommits:      snap.Result.TotalCommits,
		Truncated:         snap.Result.Truncated(),
		TotalFilesChanged: snap.Result.FilesChanged(),
	}
	if snap.Pair.Comparable() {
		resp.PullRequestURL = fmt.Sprintf("https://github.com/%s/%s/compare/%s...%s", owner, repo, snap.Pair.Base, snap.Pair.Head)
	}
	return resp
}

// openView returns the session's comparison view for owner/repo, creating it
// with the default branch as base on first use
func (s *Server) openView(ctx context.Context, sess *session.Session, gh GitHubClient, owner, repo string) (*compare.View, *github.Repo, error) {
	key := viewKey(sess.ID, owner, repo)

	var (
		info     *github.Repo
		branches []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = gh.GetRepo(gctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		branches, err = gh.GetBranches(gctx, owner, repo)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if v, ok := s.views.get(key); ok {
		v.SetBranches(branches)
		return v, info, nil
	}

	base := info.DefaultBranch
	if base == "" {
		base = "main"
	}

	s.logger.Branch("Opening %s/%s with %d branches, base %s", owner, repo, len(branches), base)
	v := compare.NewView(s.logger, compare.NewRepoFetcher(s.logger, gh, owner, repo, sess.Login), compare.ViewOptions{
		Branches: branches,
		Base:     base,
		Delay:    s.cfg.DebounceDelay,
	})
	return s.views.put(key, v), info, nil
}

// view returns an existing view or opens one
func (s *Server) view(w http.ResponseWriter, r *http.Request, owner, repo string) (*compare.View, bool) {
	sess, gh, ok := s.client(w, r)
	if !ok {
		return nil, false
	}
	if v, ok := s.views.get(viewKey(sess.ID, owner, repo)); ok {
		return v, true
	}
	v, _, err := s.openView(r.Context(), sess, gh, owner, repo)
	if err != nil {
		s.logger.Error("Failed to open %s/%s: %v", owner, repo, err)
		writeError(w, http.StatusBadGateway, "failed to load repository")
		return nil, false
	}
	return v, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"name": "pullmate", "signedIn": false}
	if sess, ok := auth.FromContext(r.Context()); ok {
		resp["signedIn"] = true
		resp["login"] = sess.Login
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	_, gh, ok := s.client(w, r)
	if !ok {
		return
	}

	repos, err := gh.ListRepos(r.Context(), repoPageSize)
	if err != nil {
		s.logger.Error("Failed to list repositories: %v", err)
		writeError(w, http.StatusBadGateway, "failed to list repositories")
		return
	}

	out := make([]repoResponse, 0, len(repos))
	for _, repo := range repos {
		out = append(out, s.toRepoResponse(repo))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRepo(w http.ResponseWriter, r *http.Request) {
	owner, repo := r.PathValue("owner"), r.PathValue("repo")
	sess, gh, ok := s.client(w, r)
	if !ok {
		return
	}

	v, info, err := s.openView(r.Context(), sess, gh, owner, repo)
	if err != nil {
		s.logger.Error("Failed to open %s/%s: %v", owner, repo, err)
		writeError(w, http.StatusBadGateway, "failed to load repository")
		return
	}

	writeJSON(w, http.StatusOK, repoDetailResponse{
		repoResponse: s.toRepoResponse(*info),
		Branches:     v.Branches(),
		Compare:      toSnapshotResponse(owner, repo, v.Snapshot()),
	})
}

func (s *Server) handleGetCompare(w http.ResponseWriter, r *http.Request) {
	owner, repo := r.PathValue("owner"), r.PathValue("repo")
	v, ok := s.view(w, r, owner, repo)
	if !ok {
		return
	}

	snap := v.Snapshot()
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		ctx, cancel := context.WithTimeout(r.Context(), settleTimeout)
		defer cancel()
		var err error
		if snap, err = v.Settled(ctx); err != nil {
			writeError(w, http.StatusGatewayTimeout, "comparison did not settle: %v", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toSnapshotResponse(owner, repo, snap))
}

func (s *Server) handleSetCompare(w http.ResponseWriter, r *http.Request) {
	owner, repo := r.PathValue("owner"), r.PathValue("repo")

	var req compareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	v, ok := s.view(w, r, owner, repo)
	if !ok {
		return
	}

	pair := v.Pair()
	if req.Base != nil {
		pair.Base = *req.Base
	}
	if req.Head != nil {
		pair.Head = *req.Head
	}
	if err := v.Set(pair); err != nil {
		if errors.Is(err, compare.ErrUnknownBranch) {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	writeJSON(w, http.StatusAccepted, toSnapshotResponse(owner, repo, v.Snapshot()))
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Owner == "" || req.Repo == "" || req.Base == "" || req.Head == "" {
		writeError(w, http.StatusBadRequest, "owner, repo, base and head are required")
		return
	}

	tpl, err := s.templates.Get(req.Template)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	v, ok := s.view(w, r, req.Owner, req.Repo)
	if !ok {
		return
	}
	want := compare.BranchPair{Base: req.Base, Head: req.Head}
	if err := v.Set(want); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), settleTimeout)
	defer cancel()
	snap, err := v.Settled(ctx)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, "comparison did not settle: %v", err)
		return
	}
	// another request for this session may have moved the selection
	if snap.Pair != want {
		writeError(w, http.StatusConflict, "selection changed to %s...%s while drafting", snap.Pair.Base, snap.Pair.Head)
		return
	}
	if len(snap.Result.Commits) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no commits between %s and %s", req.Base, req.Head)
		return
	}

	in := ai.DraftInput{
		Repository: req.Owner + "/" + req.Repo,
		Base:       req.Base,
		Head:       req.Head,
	}
	for _, c := range snap.Result.Commits {
		in.Commits = append(in.Commits, ai.Commit{
			Hash:         c.ShortHash,
			Message:      c.Message,
			Author:       c.Author,
			FilesChanged: c.FilesChanged,
		})
	}
	in.TemplateBody = tpl.Render(ai.Summary(in), ai.CommitList(in.Commits), req.Base, req.Head)

	s.logger.Step("Drafting PR for %s (%s...%s) with template %s", in.Repository, req.Base, req.Head, tpl.Name)
	pr, err := s.drafter.Draft(ctx, in)
	if err != nil {
		s.logger.Error("Failed to draft PR: %v", err)
		writeError(w, http.StatusBadGateway, "failed to draft pull request")
		return
	}
	s.logger.PR("Title: %s", pr.Title)

	writeJSON(w, http.StatusOK, draftResponse{PRContent: *pr, Template: tpl.Name, Commits: len(in.Commits)})
}

func (s *Server) handleCreatePR(w http.ResponseWriter, r *http.Request) {
	var req createPRRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Owner == "" || req.Repo == "" || req.Base == "" || req.Head == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "owner, repo, base, head and title are required")
		return
	}
	if req.Base == req.Head {
		writeError(w, http.StatusBadRequest, "base and head must differ")
		return
	}

	_, gh, ok := s.client(w, r)
	if !ok {
		return
	}

	s.logger.Step("Creating pull request %s/%s %s...%s", req.Owner, req.Repo, req.Base, req.Head)
	pr, err := gh.CreatePR(r.Context(), req.Owner, req.Repo, req.Title, req.Body, req.Head, req.Base)
	if err != nil {
		s.logger.Error("Failed to create PR: %v", err)
		writeError(w, http.StatusBadGateway, "failed to create pull request")
		return
	}

	s.logger.Success("Created PR #%d", pr.GetNumber())
	s.logger.PR("URL: %s", pr.GetHTMLURL())
	writeJSON(w, http.StatusCreated, map[string]any{
		"number": pr.GetNumber(),
		"url":    pr.GetHTMLURL(),
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.templates.List())
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Owner == "" || req.Repo == "" {
		writeError(w, http.StatusBadRequest, "owner and repo are required")
		return
	}

	_, gh, ok := s.client(w, r)
	if !ok {
		return
	}

	id, status, err := s.hooks.Subscribe(r.Context(), gh, req.Owner, req.Repo)
	if err != nil {
		switch {
		case errors.Is(err, hooks.ErrNoTarget):
			writeError(w, http.StatusServiceUnavailable, "%v", err)
		case status >= 400:
			writeError(w, status, "failed to create webhook")
		default:
			writeError(w, http.StatusBadGateway, "failed to create webhook")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, s.hooks.Activity(limit))
}

package main

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/hitgraph/packages/capture"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
)

const postSchema = `{
  "type": "object",
  "required": ["id", "userId", "title", "body"],
  "properties": {
    "id":     {"type": "integer"},
    "userId": {"type": "integer"},
    "title":  {"type": "string"}
  }
}`

// posts is shared by every test of the Posts suite.
type posts struct {
	seen    map[int64]bool
	lastRun string
}

func (p *posts) Initialize(t *graph.T) error {
	p.lastRun = t.Test().Identifier()
	return nil
}

// Build registers the demo suites. Request URLs are relative to --base-url.
func Build() (*graph.Graph, error) {
	b := graph.NewBuilder()

	b.Suite("Users", nil).
		Test("list", listUsers).
		Test("first", firstUser, graph.Depends("list"))

	b.Suite("Posts", func(ctx context.Context) (any, error) {
		return &posts{seen: make(map[int64]bool)}, nil
	}).
		Helper("author", func(t *graph.T) (any, error) {
			return int64(1), nil
		}).
		Test("create", createPost, graph.Depends("author")).
		Test("read", readPost, graph.Depends("create")).
		Test("comments", postComments, graph.Depends("read")).
		Test("cleanup", deletePost, graph.Depends("create"), graph.DependsAllowFailure("comments"))

	return b.Build()
}

func listUsers(t *graph.T) (any, error) {
	t.Queue(http.NewRequest("GET", "/users"))
	t.Then(func(t *graph.T, results []*http.Result) (any, error) {
		resp := results[0].Response
		t.Assert().Status(resp, 200)
		t.Assert().JSONExists(resp, "0.id")
		return resp.JSON("#").Int(), nil
	})
	return nil, nil
}

func firstUser(t *graph.T) (any, error) {
	count, _ := t.Arg(0).(int64)
	t.Assert().True(count > 0, "at least one user")

	resp, err := t.Client().Get(t.Context(), "/users/1", nil)
	if err != nil {
		return nil, err
	}
	t.Assert().Status(resp, 200)
	t.Assert().JSON(resp, "id", 1)
	t.Logf("first user is %s", resp.JSON("name").String())
	return nil, nil
}

func createPost(t *graph.T) (any, error) {
	author, _ := t.Arg(0).(int64)
	req, err := http.NewAPIRequest("POST", "/posts", map[string]any{
		"userId": author,
		"title":  "hitgraph",
		"body":   "created by the demo suite",
	})
	if err != nil {
		return nil, err
	}
	t.Queue(req)
	t.Then(func(t *graph.T, results []*http.Result) (any, error) {
		resp := results[0].Response
		t.Assert().Status(resp, 201)
		values := capture.ExtractAll(resp, capture.Body("id", "id"), capture.Status("status"))
		t.Logf("created post %v (%v)", values["id"], values["status"])
		return resp.JSON("id").Int(), nil
	})
	return nil, nil
}

func readPost(t *graph.T) (any, error) {
	p := t.Instance().(*posts)
	id, _ := t.Arg(0).(int64)
	p.seen[id] = true

	// The demo API does not persist writes, so read a known post as well.
	t.Queue(
		http.NewRequest("GET", "/posts/1"),
		http.NewRequest("GET", fmt.Sprintf("/posts/%d", id)),
	)
	t.Then(func(t *graph.T, results []*http.Result) (any, error) {
		resp := results[0].Response
		t.Assert().Status(resp, 200)
		t.Assert().Schema(resp, postSchema)
		return resp.JSON("id").Int(), nil
	})
	return nil, nil
}

func postComments(t *graph.T) (any, error) {
	id, _ := t.Arg(0).(int64)
	t.Queue(http.NewRequest("GET", fmt.Sprintf("/posts/%d/comments", id)))
	t.Then(func(t *graph.T, results []*http.Result) (any, error) {
		resp := results[0].Response
		t.Assert().Status(resp, 200)
		t.Assert().JSON(resp, "0.postId", id)
		return nil, nil
	})
	return nil, nil
}

func deletePost(t *graph.T) (any, error) {
	p := t.Instance().(*posts)
	id, _ := t.Arg(0).(int64)
	t.Logf("removing post %d after %s", id, p.lastRun)

	t.Queue(http.NewRequest("DELETE", fmt.Sprintf("/posts/%d", id)))
	t.Then(func(t *graph.T, results []*http.Result) (any, error) {
		t.Assert().Status(results[0].Response, 200)
		return nil, nil
	})
	return nil, nil
}

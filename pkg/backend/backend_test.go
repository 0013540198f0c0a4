package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

func sampleSnapshot() graph.Snapshot {
	return graph.Snapshot{
		Nodes: []graph.RawNode{
			{ID: "decision-1", Type: graph.NodeDecision, ItemID: "1", Title: "Use Postgres"},
			{ID: "pattern-2", Type: graph.NodePattern, ItemID: "2", Title: "Outbox"},
			{ID: "progress-3", Type: graph.NodeProgress, ItemID: "3", Status: graph.StatusTodo},
			{ID: "custom_data-4", Type: graph.NodeCustomData, ItemID: "4"},
		},
		Edges: []graph.RawEdge{
			{ID: "link-7", Source: "decision-1", Target: "pattern-2", Relationship: graph.Implements},
			{ID: "link-8", Source: "pattern-2", Target: "progress-3", Relationship: graph.Tracks},
			{ID: "link-9", Source: "progress-3", Target: "custom_data-4", Relationship: graph.RelatesTo},
		},
	}
}

func ids(nodes []graph.RawNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestHTTPClientFetchSnapshot(t *testing.T) {
	var gotPath, gotQuery, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleSnapshot())
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL+"/", "acme")
	require.NoError(t, err)

	snap, err := c.FetchSnapshot(context.Background(), FetchRequest{
		NodeTypes: []graph.NodeType{graph.NodeDecision, graph.NodePattern},
		Focus:     &FocusRequest{CenterNodeID: "decision-1", HopDepth: 2},
	})
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 4)
	assert.Equal(t, "/api/workspaces/acme/graph", gotPath)
	assert.Equal(t, "center=decision-1&hops=2&types=decision%2Cpattern", gotQuery)
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err)
}

func TestHTTPClientLinkMutations(t *testing.T) {
	type call struct {
		method, path string
		body         map[string]any
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &c.body)
		}
		calls = append(calls, c)
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"id": 42}`))
		}
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "default")
	require.NoError(t, err)
	ctx := context.Background()

	created, err := c.CreateLink(ctx, graph.CreateLinkRequest{
		SourceType: graph.NodeDecision, SourceID: "1",
		TargetType: graph.NodePattern, TargetID: "2",
		Relationship: graph.Implements,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)

	rel := graph.Blocks
	require.NoError(t, c.UpdateLink(ctx, graph.UpdateLinkRequest{LinkID: 42, Relationship: &rel}))
	require.NoError(t, c.DeleteLink(ctx, 42))

	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/api/workspaces/default/links", calls[0].path)
	assert.Equal(t, "implements", calls[0].body["relationship_type"])
	assert.Equal(t, http.MethodPatch, calls[1].method)
	assert.Equal(t, "/api/workspaces/default/links/42", calls[1].path)
	assert.Equal(t, "blocks", calls[1].body["relationship_type"])
	assert.NotContains(t, calls[1].body, "description")
	assert.Equal(t, http.MethodDelete, calls[2].method)
}

func TestHTTPClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such link", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "default")
	require.NoError(t, err)

	err = c.DeleteLink(context.Background(), 5)
	require.Error(t, err)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, OpDelete, reqErr.Op)
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
	assert.ErrorIs(t, err, ErrStatus)
	assert.ErrorIs(t, err, ErrLinkNotFound)
	assert.Contains(t, err.Error(), "no such link")
}

func TestHTTPClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, "default", WithTimeout(time.Second))
	require.NoError(t, err)
	_, err = c.FetchSnapshot(context.Background(), FetchRequest{})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 0, reqErr.Status)
	assert.NotErrorIs(t, err, ErrStatus)
}

func TestNewHTTPClientValidation(t *testing.T) {
	_, err := NewHTTPClient("not a url", "default")
	assert.Error(t, err)
	_, err = NewHTTPClient("http://localhost:8080", "")
	assert.Error(t, err)
}

func TestMemoryFetchFilters(t *testing.T) {
	m := NewMemory(sampleSnapshot())
	ctx := context.Background()

	snap, err := m.FetchSnapshot(ctx, FetchRequest{NodeTypes: []graph.NodeType{graph.NodeDecision, graph.NodePattern}})
	require.NoError(t, err)
	assert.Equal(t, []string{"decision-1", "pattern-2"}, ids(snap.Nodes))
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, "link-7", snap.Edges[0].ID)

	snap, err = m.FetchSnapshot(ctx, FetchRequest{Focus: &FocusRequest{CenterNodeID: "pattern-2", HopDepth: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"decision-1", "pattern-2", "progress-3"}, ids(snap.Nodes))
	assert.Len(t, snap.Edges, 2)

	snap, err = m.FetchSnapshot(ctx, FetchRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 2)
}

func TestMemoryLinkLifecycle(t *testing.T) {
	m := NewMemory(sampleSnapshot())
	ctx := context.Background()

	created, err := m.CreateLink(ctx, graph.CreateLinkRequest{
		SourceType: graph.NodeDecision, SourceID: "1",
		TargetType: graph.NodeCustomData, TargetID: "4",
		Relationship: graph.DependsOn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID, "ids continue after the highest seeded link")

	desc := "needs the schema first"
	require.NoError(t, m.UpdateLink(ctx, graph.UpdateLinkRequest{LinkID: created.ID, Description: &desc}))
	snap := m.Snapshot()
	last := snap.Edges[len(snap.Edges)-1]
	assert.Equal(t, "link-10", last.ID)
	assert.Equal(t, desc, last.Description)
	assert.Equal(t, graph.DependsOn, last.Relationship)

	require.NoError(t, m.DeleteLink(ctx, created.ID))
	assert.ErrorIs(t, m.DeleteLink(ctx, created.ID), ErrLinkNotFound)
	assert.Len(t, m.Snapshot().Edges, 3)
	assert.Equal(t, 2, m.Calls(OpDelete))
}

func TestMemoryRejectsBadLinks(t *testing.T) {
	m := NewMemory(sampleSnapshot())
	ctx := context.Background()

	_, err := m.CreateLink(ctx, graph.CreateLinkRequest{
		SourceType: graph.NodeDecision, SourceID: "1",
		TargetType: graph.NodeDecision, TargetID: "99",
		Relationship: graph.Blocks,
	})
	assert.ErrorIs(t, err, ErrNodeNotFound)

	err = m.UpdateLink(ctx, graph.UpdateLinkRequest{LinkID: 7})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 400, reqErr.Status)
}

func TestMemoryFailNext(t *testing.T) {
	m := NewMemory(sampleSnapshot())
	boom := errors.New("connection reset")
	m.FailNext(OpFetch, boom)

	_, err := m.FetchSnapshot(context.Background(), FetchRequest{})
	assert.ErrorIs(t, err, boom)
	_, err = m.FetchSnapshot(context.Background(), FetchRequest{})
	assert.NoError(t, err)
}

func TestReadOnlyLinks(t *testing.T) {
	var links LinkService = ReadOnlyLinks{}
	ctx := context.Background()

	_, err := links.CreateLink(ctx, graph.CreateLinkRequest{})
	assert.ErrorIs(t, err, ErrReadOnly)
	rel := graph.Blocks
	assert.ErrorIs(t, links.UpdateLink(ctx, graph.UpdateLinkRequest{LinkID: 1, Relationship: &rel}), ErrReadOnly)

	err = links.DeleteLink(ctx, 1)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, OpDelete, reqErr.Op)
}

func TestMemoryRemoveNode(t *testing.T) {
	m := NewMemory(sampleSnapshot())
	assert.True(t, m.RemoveNode("pattern-2"))
	assert.False(t, m.RemoveNode("pattern-2"))
	snap := m.Snapshot()
	assert.Len(t, snap.Nodes, 3)
	assert.Len(t, snap.Edges, 1)
}

func TestDemoSnapshotIsConnected(t *testing.T) {
	snap := DemoSnapshot(rand.New(rand.NewPCG(1, 2)), 30)
	require.Len(t, snap.Nodes, 30)
	assert.GreaterOrEqual(t, len(snap.Edges), 29)

	reach := neighborhood(snap.Edges, snap.Nodes[0].ID, len(snap.Nodes))
	assert.Len(t, reach, 30)
	for _, n := range snap.Nodes {
		if n.Type != graph.NodeProgress {
			assert.Empty(t, n.Status)
		}
	}
}

func writeSnapshot(t *testing.T, path string, snap graph.Snapshot) {
	t.Helper()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestFileSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	writeSnapshot(t, path, sampleSnapshot())

	src := NewFileSource(path, nil)
	snap, err := src.FetchSnapshot(context.Background(), FetchRequest{NodeTypes: []graph.NodeType{graph.NodeProgress}})
	require.NoError(t, err)
	assert.Equal(t, []string{"progress-3"}, ids(snap.Nodes))

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = src.FetchSnapshot(context.Background(), FetchRequest{})
	assert.ErrorIs(t, err, graph.ErrInvalidSnapshot)
}

func TestFileSourceWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	writeSnapshot(t, path, sampleSnapshot())

	src := NewFileSource(path, nil)
	src.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- src.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Writes to other files in the directory are ignored; keep rewriting the
	// snapshot until the watcher is registered and reports it.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"nodes":[],"edges":[]}`), 0o600)
		select {
		case <-changed:
			return true
		default:
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

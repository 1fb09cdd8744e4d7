package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/weaver/internal/core"
	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/core/retrieval"
	"github.com/agenthands/weaver/internal/natsutil"
	"github.com/agenthands/weaver/internal/schema"
	"github.com/agenthands/weaver/internal/tools"
)

type stubBackend struct {
	imported *model.GraphBundle
	query    string
	text     string
	topK     int
}

func (s *stubBackend) ImportGraph(ctx context.Context, b *model.GraphBundle) (*model.ImportReport, error) {
	s.imported = b
	return &model.ImportReport{NodesWritten: b.NodeCount()}, nil
}

func (s *stubBackend) FindSimilarNodes(ctx context.Context, text string, topK int, threshold float64) (*model.RetrievalResult, error) {
	s.text, s.topK = text, topK
	return nil, retrieval.ErrNoResults
}

func (s *stubBackend) ExecuteCypher(ctx context.Context, query string) ([]core.Row, error) {
	s.query = query
	return []core.Row{{Keys: []string{"x"}, Values: []any{"<b>"}}}, nil
}

func (s *stubBackend) ReadSchema() ([]byte, error) {
	return schema.Predefined().MarshalJSON()
}

func (s *stubBackend) WeaveText(ctx context.Context, text string) (*model.ImportReport, error) {
	s.text = text
	return nil, errors.New("no llm configured")
}

type stubPinger struct{ err error }

func (p stubPinger) VerifyConnectivity(ctx context.Context) error { return p.err }

func newTestRouter(t *testing.T, pinger Pinger) (*gin.Engine, *stubBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := &stubBackend{}
	return NewServer(tools.New(backend, nil), pinger, nil).SetupRouter(), backend
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func result(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Result
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, stubPinger{})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)

	r, _ = newTestRouter(t, stubPinger{err: errors.New("connection refused")})
	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestListTools(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := do(r, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tools []tools.Descriptor `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Tools, 5)
}

func TestImportGraphRoute(t *testing.T) {
	r, backend := newTestRouter(t, nil)

	out := result(t, do(r, http.MethodPost, "/tools/import_graph", `{"nodes":{"City":[{"city_name":"kyoto"}]}}`))
	assert.True(t, strings.HasPrefix(out, "Graph data imported successfully!\nCreated/Updated 1 nodes"))

	out = result(t, do(r, http.MethodPost, "/tools/import_graph", `{"graph_data":{"nodes":{"City":[{"city_name":"a"},{"city_name":"b"}]}}}`))
	assert.Contains(t, out, "Created/Updated 2 nodes")
	assert.Equal(t, 2, backend.imported.NodeCount())

	out = result(t, do(r, http.MethodPost, "/tools/import_graph", `not json`))
	assert.True(t, strings.HasPrefix(out, "Error importing graph data:"))
}

func TestFindSimilarNodesRoute(t *testing.T) {
	r, backend := newTestRouter(t, nil)

	out := result(t, do(r, http.MethodPost, "/tools/find_similar_nodes", `{"text_content":"snow","top_k":2}`))
	assert.Equal(t, "No similar nodes found for text: 'snow' with threshold 0.7", out)
	assert.Equal(t, 2, backend.topK)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/tools/find_similar_nodes", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/tools/find_similar_nodes", `{"text_content":`).Code)
}

func TestExecuteCypherRoute(t *testing.T) {
	r, backend := newTestRouter(t, nil)

	w := do(r, http.MethodPost, "/tools/execute_cypher_query", `{"cypher_query":"RETURN '<b>' AS x"}`)
	assert.Contains(t, w.Body.String(), `<b>`)
	assert.Equal(t, "[\n  {\n    \"x\": \"<b>\"\n  }\n]", result(t, w))
	assert.Equal(t, "RETURN '<b>' AS x", backend.query)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/tools/execute_cypher_query", `{"cypher_query":"  "}`).Code)
}

func TestReadGraphSchemaRoute(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	out := result(t, do(r, http.MethodGet, "/tools/read_graph_schema", ""))
	assert.Contains(t, out, `"ExperientialScene"`)
}

func TestWeaveTextRoute(t *testing.T) {
	r, backend := newTestRouter(t, nil)
	out := result(t, do(r, http.MethodPost, "/tools/weave_text", `{"text":"A walk by the river."}`))
	assert.Equal(t, "Error extracting graph data: no llm configured", out)
	assert.Equal(t, "A walk by the river.", backend.text)
}

func TestBundleBody(t *testing.T) {
	assert.Equal(t, `{"nodes":{}}`, string(BundleBody([]byte(`{"graph_data":{"nodes":{}}}`))))
	assert.Equal(t, `{"nodes":{}}`, string(BundleBody([]byte(`{"nodes":{}}`))))
	assert.Equal(t, `{"graph_data":"x"}`, string(BundleBody([]byte(`{"graph_data":"x"}`))))
	assert.Equal(t, `{bad`, string(BundleBody([]byte(`{bad`))))
}

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	srv.Start()
	require.True(t, srv.ReadyForConnections(3*time.Second))

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func TestBridge(t *testing.T) {
	nc := startTestNATS(t)
	backend := &stubBackend{}
	bridge := NewBridge(nc, tools.New(backend, nil), "weaver.tools", "weaver", nil)
	require.NoError(t, bridge.Start())
	defer bridge.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := natsutil.Request[json.RawMessage, Response](ctx, nc, bridge.Subject(tools.ImportGraphTool),
		json.RawMessage(`{"graph_data":{"nodes":{"Season":[{"season_name":"autumn"}]}}}`))
	require.NoError(t, err)
	assert.Contains(t, resp.Result, "Created/Updated 1 nodes")

	_, err = natsutil.Request[CypherRequest, Response](ctx, nc, "weaver.tools.execute_cypher_query", CypherRequest{CypherQuery: "RETURN 1"})
	require.NoError(t, err)
	assert.Equal(t, "RETURN 1", backend.query)

	schemaReply, err := nc.RequestWithContext(ctx, "weaver.tools.read_graph_schema", nil)
	require.NoError(t, err)
	var schemaResp Response
	require.NoError(t, json.Unmarshal(schemaReply.Data, &schemaResp))
	assert.Contains(t, schemaResp.Result, `"relationships"`)

	errResp, err := natsutil.Request[WeaveRequest, natsutil.ErrorReply](ctx, nc, "weaver.tools.weave_text", WeaveRequest{})
	require.NoError(t, err)
	assert.Equal(t, "text is required", errResp.Error)
}

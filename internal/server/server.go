// Package server exposes the graph tools over HTTP and NATS.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/agenthands/weaver/internal/tools"
)

// Pinger reports whether the graph store is reachable.
type Pinger interface {
	VerifyConnectivity(ctx context.Context) error
}

// Response is the envelope every tool answers with.
type Response struct {
	Result string `json:"result"`
}

type CypherRequest struct {
	CypherQuery string `json:"cypher_query"`
}

type WeaveRequest struct {
	Text string `json:"text"`
}

type Server struct {
	toolkit *tools.Toolkit
	pinger  Pinger
	logger  *zap.Logger
}

func NewServer(toolkit *tools.Toolkit, pinger Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{toolkit: toolkit, pinger: pinger, logger: logger}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", s.Health)

	g := r.Group("/tools")
	g.GET("", s.ListTools)
	g.POST("/"+tools.ImportGraphTool, s.ImportGraph)
	g.POST("/"+tools.FindSimilarNodesTool, s.FindSimilarNodes)
	g.POST("/"+tools.ExecuteCypherTool, s.ExecuteCypher)
	g.GET("/"+tools.ReadGraphSchemaTool, s.ReadGraphSchema)
	g.POST("/"+tools.WeaveTextTool, s.WeaveText)

	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("Request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}

func (s *Server) Health(c *gin.Context) {
	if s.pinger != nil {
		if err := s.pinger.VerifyConnectivity(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": tools.Descriptors()})
}

// ImportGraph accepts the bundle itself or {"graph_data": bundle}.
func (s *Server) ImportGraph(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	s.respond(c, s.toolkit.ImportGraph(c.Request.Context(), BundleBody(raw)))
}

func (s *Server) FindSimilarNodes(c *gin.Context) {
	var args tools.SimilarityArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(args.TextContent) == "" {
		badRequest(c, errors.New("text_content is required"))
		return
	}
	s.respond(c, s.toolkit.FindSimilarNodes(c.Request.Context(), args))
}

func (s *Server) ExecuteCypher(c *gin.Context) {
	var req CypherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.CypherQuery) == "" {
		badRequest(c, errors.New("cypher_query is required"))
		return
	}
	s.respond(c, s.toolkit.ExecuteCypher(c.Request.Context(), req.CypherQuery))
}

func (s *Server) ReadGraphSchema(c *gin.Context) {
	s.respond(c, s.toolkit.ReadGraphSchema(c.Request.Context()))
}

func (s *Server) WeaveText(c *gin.Context) {
	var req WeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(c, errors.New("text is required"))
		return
	}
	s.respond(c, s.toolkit.WeaveText(c.Request.Context(), req.Text))
}

// respond writes the envelope without HTML escaping; tool failures are
// still reported in-band with status 200.
func (s *Server) respond(c *gin.Context, result string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Response{Result: result}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
}

// BundleBody unwraps a {"graph_data": {...}} envelope and returns any other
// body unchanged.
func BundleBody(raw []byte) []byte {
	if !gjson.ValidBytes(raw) {
		return raw
	}
	inner := gjson.GetBytes(raw, "graph_data")
	if inner.IsObject() {
		return []byte(inner.Raw)
	}
	return raw
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/services"
	"github.com/warraq-labs/warraq/internal/logger"
)

// searchRequest is the POST /search body.
type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// searchHit is one row of a search response.
type searchHit struct {
	DocumentID    string  `json:"document_id"`
	Position      string  `json:"position"`
	Score         float64 `json:"score"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	Snippet       string  `json:"snippet"`
}

// searchResponse is the POST /search reply.
type searchResponse struct {
	Query string      `json:"query"`
	Mode  domain.Mode `json:"mode"`
	Hits  []searchHit `json:"hits"`
}

// chatRequest is the POST /chat body.
type chatRequest struct {
	Query string `json:"query"`
}

// errorResponse carries a client-visible failure reason.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.retrieval.Status(c.Request().Context()))
}

func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	ctx := c.Request().Context()
	hits, err := s.retrieval.Search(ctx, req.Query, req.K)
	if err != nil {
		return s.serviceError(c, err)
	}

	resp := searchResponse{
		Query: req.Query,
		Mode:  s.retrieval.Status(ctx).Mode,
		Hits:  make([]searchHit, 0, len(hits)),
	}
	for _, h := range hits {
		resp.Hits = append(resp.Hits, searchHit{
			DocumentID:    h.DocumentID,
			Position:      h.Position,
			Score:         h.Score,
			LexicalScore:  h.LexicalScore,
			SemanticScore: h.SemanticScore,
			Snippet:       services.Snippet(h.Text),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
	}

	ctx := c.Request().Context()
	events, err := s.chat.Stream(ctx, req.Query)
	if err != nil {
		return s.serviceError(c, err)
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Proxies must not hold tokens back.
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Error("marshal stream event: %v", err)
			continue
		}
		if _, err := c.Response().Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			// Client went away; the service stops on ctx cancel.
			return nil
		}
		flusher.Flush()
	}
	return nil
}

func (s *Server) handleRebuild(c echo.Context) error {
	receipt, err := s.retrieval.Rebuild(c.Request().Context())
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(http.StatusAccepted, receipt)
}

// serviceError maps core errors onto HTTP statuses.
func (s *Server) serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrIndexNotReady):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		logger.Error("request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

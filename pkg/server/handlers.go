package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDHeader carries a caller-supplied request id.
const requestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// requestID echoes the caller's request id, or assigns one, on every
// response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return s.logger.With(requestIDKey, c.GetString(requestIDKey), "handler", handler)
}

// kernelError maps a kernel failure to a status and error code.
func kernelError(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}
	switch kernel.KindOf(err) {
	case kernel.KindNoIntersection:
		resp.Code = "NO_INTERSECTION"
		return http.StatusUnprocessableEntity, resp
	case kernel.KindDegenerateGeometry:
		resp.Code = "DEGENERATE_GEOMETRY"
		return http.StatusUnprocessableEntity, resp
	case kernel.KindInvalidInput:
		resp.Code = "INVALID_INPUT"
		return http.StatusBadRequest, resp
	}
	resp.Code = "INTERNAL"
	return http.StatusInternalServerError, resp
}

// handleSplit handles POST /v1/split.
//
// Response:
//
//	200 OK: SplitResponse
//	400 Bad Request: malformed body or INVALID_INPUT
//	422 Unprocessable Entity: NO_INTERSECTION or DEGENERATE_GEOMETRY
//	500 Internal Server Error: the split succeeded but could not be saved
func (s *Server) handleSplit(c *gin.Context) {
	logger := s.requestLogger(c, "handleSplit")

	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if err := req.Validate(); err != nil {
		logger.Warn("Split request rejected", "error", err)
		c.JSON(kernelError(err))
		return
	}

	res, err := s.splitter.Split(req.Target(), req.Params)
	if err != nil {
		logger.Info("Split failed", "source", req.SourceElementID, "kind", kernel.KindOf(err).String(), "error", err)
		c.JSON(kernelError(err))
		return
	}

	// Both parts are saved together so a failure never leaves one sibling.
	ids, err := s.store.SaveAll(c.Request.Context(), res.Elements[:])
	if err != nil {
		logger.Error("Saving split elements failed", "source", req.SourceElementID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STORE_FAILED"})
		return
	}
	for i, e := range res.Elements {
		e.ID = ids[i]
	}

	logger.Info("Split saved",
		"source", req.SourceElementID,
		"method", string(req.Method),
		"ids", []string{res.Elements[0].ID, res.Elements[1].ID},
		"ratios", []float64{res.Elements[0].VolumeRatio, res.Elements[1].VolumeRatio},
	)
	resp := SplitResponse{Elements: res.Elements, BoundaryEdges: res.BoundaryEdges}
	if len(req.Quantities) > 0 {
		for i, e := range res.Elements {
			resp.Quantities[i] = req.Quantities.AllocateElement(e)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleVolume handles POST /v1/volume. Open meshes are INVALID_INPUT.
func (s *Server) handleVolume(c *gin.Context) {
	logger := s.requestLogger(c, "handleVolume")

	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	vol, err := kernel.MeasureClosed(req.Mesh)
	if err != nil {
		c.JSON(kernelError(err))
		return
	}
	c.JSON(http.StatusOK, VolumeResponse{Volume: vol, Triangles: req.Mesh.TriangleCount()})
}

// handleGetElement handles GET /v1/elements/:id.
func (s *Server) handleGetElement(c *gin.Context) {
	e, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, "handleGetElement", err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// handleListBySource handles GET /v1/sources/:id/elements.
func (s *Server) handleListBySource(c *gin.Context) {
	src := c.Param("id")
	elems, err := s.store.ListBySource(c.Request.Context(), src)
	if err != nil {
		s.storeError(c, "handleListBySource", err)
		return
	}
	if elems == nil {
		elems = []*lineage.SplitElement{}
	}
	resp := ElementsResponse{SourceElementID: src, Elements: elems}
	for _, f := range lineage.Validate(elems) {
		resp.Warnings = append(resp.Warnings, Finding{ElementID: f.ElementID, Message: f.Message, Severity: f.Severity.String()})
	}
	if len(resp.Warnings) > 0 {
		s.requestLogger(c, "handleListBySource").Warn("Lineage inconsistent", "source", src, "findings", len(resp.Warnings))
	}
	c.JSON(http.StatusOK, resp)
}

// handleDeleteBySource handles DELETE /v1/sources/:id/elements. Deleting a
// source with no splits is not an error.
func (s *Server) handleDeleteBySource(c *gin.Context) {
	logger := s.requestLogger(c, "handleDeleteBySource")
	src := c.Param("id")
	n, err := s.store.DeleteBySource(c.Request.Context(), src)
	if err != nil {
		s.storeError(c, "handleDeleteBySource", err)
		return
	}
	logger.Info("Splits deleted", "source", src, "count", n)
	c.JSON(http.StatusOK, DeleteResponse{SourceElementID: src, Deleted: n})
}

// handleSources handles GET /v1/sources.
func (s *Server) handleSources(c *gin.Context) {
	srcs, err := s.store.Sources(c.Request.Context())
	if err != nil {
		s.storeError(c, "handleSources", err)
		return
	}
	if srcs == nil {
		srcs = []string{}
	}
	c.JSON(http.StatusOK, SourcesResponse{Sources: srcs})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

func (s *Server) storeError(c *gin.Context, handler string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.Is(err, store.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "STORE_CLOSED"})
	default:
		s.requestLogger(c, handler).Error("Store operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STORE_FAILED"})
	}
}

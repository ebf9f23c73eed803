package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biwstack/biw-advisor/advisor"
)

type decideRequest struct {
	Query string `json:"query" binding:"required"`
}

// decideResponse always carries a decision; Error explains a CPU fallback.
type decideResponse struct {
	Decision advisor.Decision `json:"decision"`
	Error    string           `json:"error,omitempty"`
}

type outcomeRequest struct {
	Class     advisor.QueryClass `json:"class" binding:"required"`
	Rows      float64            `json:"rows" binding:"required"`
	ElapsedMs *float64           `json:"elapsed_ms" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDecide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	d, err := s.engine.Decide(c.Request.Context(), req.Query)
	resp := decideResponse{Decision: d}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleOutcome(c *gin.Context) {
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.RecordOutcome(req.Class, req.Rows, *req.ElapsedMs); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, advisor.ErrNoQueryClass) {
			status = http.StatusNotFound
		}
		respondError(c, status, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleModel(c *gin.Context) {
	snap, err := s.engine.Model(advisor.QueryClass(c.Param("class")))
	if err != nil {
		respondError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleTable(c *gin.Context) {
	report, err := s.engine.Inspect(c.Request.Context(), c.Param("table"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, advisor.ErrTableNotFound) {
			status = http.StatusNotFound
		}
		respondError(c, status, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Summary())
}

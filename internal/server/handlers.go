package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgeworks/foreman/pkg/models"
)

// submitRequest is the task submission payload.
type submitRequest struct {
	Prompt      string              `json:"prompt" binding:"required"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// answerRequest delivers a clarification answer.
type answerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	id, err := s.manager.Submit(models.NewTaskRequest(req.Prompt, req.Attachments))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": id, "phase": models.PhaseRouting})
}

func (s *Server) handleList(c *gin.Context) {
	summaries, err := s.manager.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": summaries})
}

func (s *Server) handleStatus(c *gin.Context) {
	w, err := s.manager.Get(c.Param("id"))
	if err != nil {
		s.taskError(c, err)
		return
	}

	status := gin.H{
		"task_id":      w.ID(),
		"phase":        w.Phase,
		"current_step": w.CurrentStep,
		"plan":         w.Plan.Steps,
		"metrics":      w.Metrics,
		"created_at":   w.CreatedAt,
		"updated_at":   w.UpdatedAt,
	}
	if w.PendingQuestion != "" {
		status["pending_question"] = w.PendingQuestion
	}
	if w.Failure != nil {
		status["failure"] = w.Failure
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer is required"})
		return
	}

	if err := s.manager.Answer(c.Param("id"), req.Answer); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": c.Param("id")})
}

func (s *Server) handleCancel(c *gin.Context) {
	if err := s.manager.Cancel(c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": c.Param("id")})
}

// handleResult yields the final artifact set on DONE, the structured
// failure report on FAILED, and a conflict while the task is still moving.
func (s *Server) handleResult(c *gin.Context) {
	w, err := s.manager.Get(c.Param("id"))
	if err != nil {
		s.taskError(c, err)
		return
	}

	switch w.Phase {
	case models.PhaseDone:
		resp := gin.H{"task_id": w.ID(), "phase": w.Phase, "artifacts": w.Result}
		if w.ResultSummary != "" {
			resp["summary"] = w.ResultSummary
		}
		c.JSON(http.StatusOK, resp)
	case models.PhaseFailed:
		resp := gin.H{"task_id": w.ID(), "phase": w.Phase, "failure": w.Failure}
		if w.ResultSummary != "" {
			resp["summary"] = w.ResultSummary
		}
		c.JSON(http.StatusOK, resp)
	default:
		c.JSON(http.StatusConflict, gin.H{
			"error": "task not finished",
			"phase": w.Phase,
		})
	}
}

func (s *Server) taskError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pgoos/clark-app-sub007/internal/questionnaire"
	"github.com/pgoos/clark-app-sub007/internal/repository"
)

// ResponseHandlers bridges inbound questionnaire calls (normally made
// by the API gateway) to the response service.
type ResponseHandlers struct {
	responses *repository.ResponseRepository
	service   *questionnaire.Service
}

// NewResponseHandlers creates questionnaire response handlers
func NewResponseHandlers(responses *repository.ResponseRepository, service *questionnaire.Service) *ResponseHandlers {
	return &ResponseHandlers{
		responses: responses,
		service:   service,
	}
}

type answerRequest struct {
	Question string   `json:"question" binding:"required"`
	Values   []string `json:"values" binding:"required"`
}

// Register mounts the response routes
func (h *ResponseHandlers) Register(router gin.IRouter) {
	group := router.Group("/responses/:id")
	group.POST("/answers", h.createAnswer)
	group.POST("/finish", h.event(func(c *gin.Context, id int64) (bool, error) {
		response, err := h.responses.GetByID(c.Request.Context(), id)
		if err != nil || response == nil {
			return false, err
		}
		return h.service.Finish(c.Request.Context(), response), nil
	}))
	group.POST("/analyze", h.event(func(c *gin.Context, id int64) (bool, error) {
		response, err := h.responses.GetByID(c.Request.Context(), id)
		if err != nil || response == nil {
			return false, err
		}
		return h.service.Analyze(c.Request.Context(), response), nil
	}))
	group.POST("/cancel", h.event(func(c *gin.Context, id int64) (bool, error) {
		response, err := h.responses.GetByID(c.Request.Context(), id)
		if err != nil || response == nil {
			return false, err
		}
		return h.service.Cancel(c.Request.Context(), response), nil
	}))
}

func (h *ResponseHandlers) createAnswer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response id"})
		return
	}

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.responses.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if response == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "response not found"})
		return
	}

	recorded, err := h.service.CreateAnswer(c.Request.Context(), response, req.Question, req.Values...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": recorded, "state": response.State})
}

// event wraps a transition call into the shared fired/no-op response shape.
func (h *ResponseHandlers) event(fn func(c *gin.Context, id int64) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response id"})
			return
		}

		fired, err := fn(c, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"fired": fired})
	}
}

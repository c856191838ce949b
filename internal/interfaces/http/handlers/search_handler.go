package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/search"
	"github.com/nexis-chat/nexis/gateway/pkg/errors"
	"go.uber.org/zap"
)

// SearchHandler serves semantic search over indexed messages.
type SearchHandler struct {
	search *search.Service
	logger *zap.Logger
}

// NewSearchHandler creates the search handler. svc may be nil when no
// embedding backend is configured; requests then fail with 503.
func NewSearchHandler(svc *search.Service, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{search: svc, logger: logger}
}

// Search handles POST /v1/search.
func (h *SearchHandler) Search(c *gin.Context) {
	if h.search == nil {
		respondError(c, errors.NewServiceUnavailableError("search is not configured"))
		return
	}

	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	resp, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/limglenaldin/ai-insurance-agent/internal/app"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
	"github.com/limglenaldin/ai-insurance-agent/internal/transport/http/response"
)

type SearchHandler struct {
	searchService *app.SearchService
	maxTopK       int
}

type SearchRequest struct {
	Query   string             `json:"query" binding:"required"`
	Profile *model.UserProfile `json:"profile"`
	// TopK is a pointer so an explicit 0 can be told apart from an omitted field.
	TopK *int `json:"top_k"`
}

func NewSearchHandler(searchService *app.SearchService, maxTopK int) *SearchHandler {
	return &SearchHandler{searchService: searchService, maxTopK: maxTopK}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, "invalid request payload: "+err.Error())
		return
	}

	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
		if topK < 1 || topK > h.maxTopK {
			response.Error(c, http.StatusUnprocessableEntity, fmt.Sprintf("top_k must be between 1 and %d", h.maxTopK))
			return
		}
	}

	out, err := h.searchService.Search(c.Request.Context(), app.SearchInput{
		Query:   req.Query,
		Profile: req.Profile,
		TopK:    topK,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, app.ErrIndexNotLoaded):
			response.Error(c, http.StatusInternalServerError, "Search index not loaded")
		default:
			response.Error(c, http.StatusInternalServerError, "Search failed: "+err.Error())
		}
		return
	}

	response.OK(c, out)
}

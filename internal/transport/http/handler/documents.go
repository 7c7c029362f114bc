package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/limglenaldin/ai-insurance-agent/internal/model"
	"github.com/limglenaldin/ai-insurance-agent/internal/transport/http/response"
)

type DocumentLister interface {
	List(ctx context.Context) ([]model.IngestedDocument, error)
}

type DocumentsHandler struct {
	repo DocumentLister
}

func NewDocumentsHandler(repo DocumentLister) *DocumentsHandler {
	return &DocumentsHandler{repo: repo}
}

func (h *DocumentsHandler) List(c *gin.Context) {
	docs, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list documents failed")
		return
	}
	if docs == nil {
		docs = []model.IngestedDocument{}
	}
	response.OK(c, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

package services

import (
	"context"
	"net/http"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/gin-gonic/gin"
	"github.com/relaydesk/relay/db"
	"go.uber.org/zap"
)

type fileLister interface {
	ListByConversation(ctx context.Context, conversationID string) ([]db.FileModel, error)
}

// FileService exposes the persisted-file metadata of a conversation so a
// UI can render a file panel without touching blob storage.
type FileService struct {
	files fileLister
}

func ProvideFileService(files fileLister) *FileService {
	return &FileService{files: files}
}

func (s *FileService) Register(r *gin.Engine) {
	r.GET("/v1/files", s.ListFiles)
	r.GET("/healthz", s.Health)
}

func (s *FileService) ListFiles(c *gin.Context) {
	conversationID := c.Query("conversationId")
	if conversationID == "" {
		respondError(c, http.StatusBadRequest, "validation", "conversationId is required")
		return
	}

	records, err := s.files.ListByConversation(c.Request.Context(), conversationID)
	if err != nil {
		logger.Error("Failed to list files", zap.String("conversationId", conversationID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": fileViews(records)})
}

func (s *FileService) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

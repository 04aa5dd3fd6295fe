package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/gin-gonic/gin"
	"github.com/relaydesk/relay/db"
	"github.com/relaydesk/relay/search"
	"github.com/relaydesk/relay/turn"
	"go.uber.org/zap"
)

type turnRunner interface {
	RunTurn(ctx context.Context, input turn.Input) (*turn.Reply, error)
}

// TurnService is the HTTP surface for running conversation turns.
type TurnService struct {
	coordinator turnRunner
}

func ProvideTurnService(coordinator turnRunner) *TurnService {
	return &TurnService{coordinator: coordinator}
}

type turnRequest struct {
	ConversationID string   `json:"conversationId"`
	Message        string   `json:"message"`
	FileHandles    []string `json:"fileHandles"`
	SearchEnabled  bool     `json:"searchEnabled"`
	JSONMode       bool     `json:"jsonMode"`
}

type turnResponse struct {
	Status         string                  `json:"status"`
	ConversationID string                  `json:"conversationId"`
	Message        string                  `json:"message"`
	Files          []fileView              `json:"files"`
	Sources        []search.SourceCitation `json:"sources,omitempty"`
}

type fileView struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	URL         string `json:"url"`
	CreatedAt   int64  `json:"createdAt"`
}

func (s *TurnService) Register(r *gin.Engine) {
	r.POST("/v1/turn", s.RunTurn)
}

// RunTurn handles POST /v1/turn. Pipeline failures that already degraded
// into a reply come back as 200 with a non-success status field; only
// caller and configuration problems map to HTTP errors.
func (s *TurnService) RunTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "request body is not valid JSON")
		return
	}

	reply, err := s.coordinator.RunTurn(c.Request.Context(), turn.Input{
		ConversationID: req.ConversationID,
		Text:           req.Message,
		FileHandles:    req.FileHandles,
		SearchEnabled:  req.SearchEnabled,
		JSONMode:       req.JSONMode,
	})
	if err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			logger.Error("Turn failed", zap.String("conversationId", req.ConversationID), zap.Error(err))
			respondError(c, status, code, "internal error")
			return
		}
		respondError(c, status, code, userMessage(err))
		return
	}

	c.JSON(http.StatusOK, turnResponse{
		Status:         reply.Status,
		ConversationID: reply.ConversationID,
		Message:        reply.Text,
		Files:          fileViews(reply.Files),
		Sources:        reply.Sources,
	})
}

func classify(err error) (int, string) {
	var turnErr *turn.Error
	if !errors.As(err, &turnErr) {
		return http.StatusInternalServerError, "internal"
	}
	switch turnErr.Kind {
	case turn.KindValidation:
		return http.StatusBadRequest, "validation"
	case turn.KindConcurrentTurn:
		return http.StatusConflict, "concurrent_turn"
	default:
		return http.StatusInternalServerError, string(turnErr.Kind)
	}
}

func userMessage(err error) string {
	var turnErr *turn.Error
	if errors.As(err, &turnErr) {
		return turnErr.Message
	}
	return "internal error"
}

func fileViews(records []db.FileModel) []fileView {
	views := make([]fileView, 0, len(records))
	for _, rec := range records {
		views = append(views, fileView{
			ID:          rec.ExternalHandle,
			FileName:    rec.FileName,
			ContentType: rec.ContentType,
			SizeBytes:   rec.SizeBytes,
			URL:         rec.PublicURL,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return views
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorEnvelope{Error: apiError{Message: message, Code: code}})
}

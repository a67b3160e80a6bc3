package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

// VideoCatalog is the slice of the provider client the video endpoints need.
type VideoCatalog interface {
	ListVideos(ctx context.Context) (*models.VideoListing, error)
	GetVideoDetails(ctx context.Context, videoID string) (*models.Video, error)
}

// VideoHandler proxies the provider's video catalog.
type VideoHandler struct {
	catalog VideoCatalog
}

// NewVideoHandler creates a new VideoHandler instance.
func NewVideoHandler(catalog VideoCatalog) *VideoHandler {
	return &VideoHandler{catalog: catalog}
}

// ListVideos handles GET /api/videos.
func (h *VideoHandler) ListVideos(c *gin.Context) {
	listing, err := h.catalog.ListVideos(c.Request.Context())
	if err != nil {
		logger.Log.Error("Failed to list videos",
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Status:    http.StatusBadGateway,
			Error:     "Bad Gateway",
			Message:   "Failed to retrieve videos from the provider",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, listing)
}

// GetVideoDetails handles GET /api/videos/:videoID.
func (h *VideoHandler) GetVideoDetails(c *gin.Context) {
	videoID := c.Param("videoID")

	video, err := h.catalog.GetVideoDetails(c.Request.Context(), videoID)
	if err != nil {
		logger.Log.Error("Failed to get video details",
			zap.Error(err),
			zap.String("videoId", videoID),
		)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Status:    http.StatusBadGateway,
			Error:     "Bad Gateway",
			Message:   "Failed to retrieve video details from the provider",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, video)
}

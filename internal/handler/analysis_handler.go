// Package handler provides HTTP request handlers for the application.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brandpulse/sponsorship-analysis-go/internal/analysis"
	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
	"github.com/brandpulse/sponsorship-analysis-go/internal/repository"
	"github.com/brandpulse/sponsorship-analysis-go/internal/validation"
	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

// AnalysisHandler handles analysis job lifecycle HTTP requests.
type AnalysisHandler struct {
	registry  *analysis.Registry
	validator *validation.Validator
	history   *repository.Repository
}

// NewAnalysisHandler creates a new AnalysisHandler instance. The history
// repository is optional; without it, jobs evicted from memory are gone.
func NewAnalysisHandler(registry *analysis.Registry, validator *validation.Validator, history *repository.Repository) *AnalysisHandler {
	return &AnalysisHandler{
		registry:  registry,
		validator: validator,
		history:   history,
	}
}

// StartAnalysis handles POST /api/analyze/start.
func (h *AnalysisHandler) StartAnalysis(c *gin.Context) {
	var req models.StartRequestDTO

	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Log.Warn("Invalid request payload",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:    http.StatusBadRequest,
			Error:     "Bad Request",
			Message:   "Invalid request payload: " + err.Error(),
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if err := h.validator.ValidateStartRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:    http.StatusBadRequest,
			Error:     "Bad Request",
			Message:   err.Error(),
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	handle, err := h.registry.Start(c.Request.Context(), req.VideoIDs, req.Brands)
	if err != nil {
		h.handleError(c, err)
		return
	}

	job := handle.Job()
	message := "Analysis started"
	if job.Mode == models.JobModeBatch {
		message = "Combined analysis started"
	}

	c.JSON(http.StatusAccepted, models.StartResponseDTO{
		JobID:    job.JobID,
		Mode:     job.Mode,
		Status:   string(models.JobStatePending),
		Message:  message,
		VideoIDs: job.RequestedVideoIDs,
		Brands:   job.RequestedBrands,
	})
}

// GetStatus handles GET /api/analyze/status/:jobID. While the job runs it
// returns the projected progress; once settled it returns the terminal result
// or error. Jobs already evicted from memory are looked up in history.
func (h *AnalysisHandler) GetStatus(c *gin.Context) {
	jobID := c.Param("jobID")

	handle, ok := h.registry.Get(jobID)
	if !ok {
		h.statusFromHistory(c, jobID)
		return
	}

	if handle.Cancelled() && !handle.Settled() {
		c.JSON(http.StatusOK, gin.H{
			"job_id": jobID,
			"status": "cancelled",
		})
		return
	}

	if !handle.Settled() {
		c.JSON(http.StatusOK, gin.H{
			"job_id":   jobID,
			"status":   string(models.JobStateProcessing),
			"progress": handle.Progress(),
		})
		return
	}

	result, err := handle.Result(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"job_id": jobID,
			"status": string(models.JobStateFailed),
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": string(models.JobStateCompleted),
		"data":   result,
	})
}

// CancelJob handles DELETE /api/analyze/:jobID.
func (h *AnalysisHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("jobID")

	if !h.registry.Cancel(jobID) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:    http.StatusNotFound,
			Error:     "Not Found",
			Message:   "No analysis job with id " + jobID,
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	logger.Log.Info("analysis job cancelled via API",
		zap.String("jobId", jobID),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": "cancelled",
	})
}

// ListHistory handles GET /api/analyze/history.
func (h *AnalysisHandler) ListHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, models.ErrorResponse{
			Status:    http.StatusNotImplemented,
			Error:     "Not Implemented",
			Message:   "Job history persistence is not configured",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	entries, err := h.history.ListRecentJobs(c.Request.Context(), 50)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if entries == nil {
		entries = []repository.JobHistoryEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"items": entries,
		"total": len(entries),
	})
}

func (h *AnalysisHandler) statusFromHistory(c *gin.Context, jobID string) {
	if h.history != nil {
		entry, err := h.history.GetJobHistory(c.Request.Context(), jobID)
		if err == nil {
			response := gin.H{
				"job_id": entry.JobID,
				"status": string(entry.State),
			}
			if entry.ErrorMessage != "" {
				response["error"] = entry.ErrorMessage
			}
			if entry.Result != nil {
				response["data"] = entry.Result
			}
			c.JSON(http.StatusOK, response)
			return
		}
		if !errors.Is(err, repository.ErrNotFound) {
			h.handleError(c, err)
			return
		}
	}

	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Status:    http.StatusNotFound,
		Error:     "Not Found",
		Message:   "No analysis job with id " + jobID,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

func (h *AnalysisHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analysis.ErrJobInFlight):
		logger.Log.Warn("Rejected concurrent start",
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:    http.StatusConflict,
			Error:     "Conflict",
			Message:   err.Error(),
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	default:
		var startErr *analysis.StartFailedError
		if errors.As(err, &startErr) {
			logger.Log.Error("Failed to start analysis",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Status:    http.StatusBadGateway,
				Error:     "Bad Gateway",
				Message:   "Failed to start analysis with the provider",
				Timestamp: time.Now(),
				Path:      c.Request.URL.Path,
			})
			return
		}

		logger.Log.Error("Unexpected error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:    http.StatusInternalServerError,
			Error:     "Internal Server Error",
			Message:   "An unexpected error occurred",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	}
}

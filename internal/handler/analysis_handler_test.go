package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brandpulse/sponsorship-analysis-go/internal/analysis"
	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
	"github.com/brandpulse/sponsorship-analysis-go/internal/validation"
	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	// Initialize logger to prevent nil pointer errors
	_ = logger.Init("error", "")
}

// stubProvider implements analysis.ProviderAPI for handler tests.
type stubProvider struct {
	mu        sync.Mutex
	jobID     string
	createErr error
	status    *models.AnalysisStatus
	statusErr error
}

func (s *stubProvider) CreateJob(_ context.Context, _ []string, _ []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.jobID, nil
}

func (s *stubProvider) GetJobStatus(_ context.Context, _ string) (*models.AnalysisStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.status, nil
}

func newTestHandler(provider *stubProvider) (*AnalysisHandler, *analysis.Registry) {
	registry := analysis.NewRegistry(provider, analysis.PollerConfig{
		Interval:               time.Millisecond,
		MaxConsecutiveFailures: 3,
		InitialBackoff:         time.Millisecond,
		MaxBackoff:             5 * time.Millisecond,
	}, time.Hour)
	return NewAnalysisHandler(registry, validation.New(10), nil), registry
}

func completedSingleStatus() *models.AnalysisStatus {
	return &models.AnalysisStatus{
		State:    models.JobStateCompleted,
		Progress: 100,
		ResultPayload: &models.AnalysisResult{
			Single: &models.SingleVideoReport{
				VideoID: "vid-1",
				Summary: &models.ReportSummary{VideoDurationMinutes: 10},
			},
		},
	}
}

func performJSON(handler gin.HandlerFunc, method, path string, body any, params gin.Params) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params

	handler(c)
	return w
}

func TestAnalysisHandler_StartAnalysis(t *testing.T) {
	provider := &stubProvider{jobID: "job-1", status: completedSingleStatus()}
	h, _ := newTestHandler(provider)

	w := performJSON(h.StartAnalysis, "POST", "/api/analyze/start", models.StartRequestDTO{
		VideoIDs: []string{"vid-1"},
		Brands:   []string{"Nike"},
	}, nil)

	if w.Code != http.StatusAccepted {
		t.Fatalf("StartAnalysis() status = %d, want %d, body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp models.StartResponseDTO
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.JobID != "job-1" {
		t.Errorf("JobID = %s, want job-1", resp.JobID)
	}
	if resp.Mode != models.JobModeSingle {
		t.Errorf("Mode = %s, want %s", resp.Mode, models.JobModeSingle)
	}
}

func TestAnalysisHandler_StartAnalysis_BatchMode(t *testing.T) {
	provider := &stubProvider{jobID: "job-2", status: completedSingleStatus()}
	h, _ := newTestHandler(provider)

	w := performJSON(h.StartAnalysis, "POST", "/api/analyze/start", models.StartRequestDTO{
		VideoIDs: []string{"vid-1", "vid-2"},
	}, nil)

	if w.Code != http.StatusAccepted {
		t.Fatalf("StartAnalysis() status = %d, want %d", w.Code, http.StatusAccepted)
	}

	var resp models.StartResponseDTO
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Mode != models.JobModeBatch {
		t.Errorf("Mode = %s, want %s", resp.Mode, models.JobModeBatch)
	}
}

func TestAnalysisHandler_StartAnalysis_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{
			name: "empty video list",
			body: map[string]any{"video_ids": []string{}},
		},
		{
			name: "missing video ids",
			body: map[string]any{"brands": []string{"Nike"}},
		},
		{
			name: "duplicate video ids",
			body: map[string]any{"video_ids": []string{"vid-1", "vid-1"}},
		},
		{
			name: "invalid brand",
			body: map[string]any{"video_ids": []string{"vid-1"}, "brands": []string{"<bad>"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{jobID: "job-1", status: completedSingleStatus()}
			h, _ := newTestHandler(provider)

			w := performJSON(h.StartAnalysis, "POST", "/api/analyze/start", tt.body, nil)

			if w.Code != http.StatusBadRequest {
				t.Errorf("StartAnalysis() status = %d, want %d", w.Code, http.StatusBadRequest)
			}

			var errResp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if errResp.Error != "Bad Request" {
				t.Errorf("Error = %s, want Bad Request", errResp.Error)
			}
		})
	}
}

func TestAnalysisHandler_StartAnalysis_ProviderDown(t *testing.T) {
	provider := &stubProvider{createErr: context.DeadlineExceeded}
	h, _ := newTestHandler(provider)

	w := performJSON(h.StartAnalysis, "POST", "/api/analyze/start", models.StartRequestDTO{
		VideoIDs: []string{"vid-1"},
	}, nil)

	if w.Code != http.StatusBadGateway {
		t.Errorf("StartAnalysis() status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestAnalysisHandler_GetStatus_Completed(t *testing.T) {
	provider := &stubProvider{jobID: "job-1", status: completedSingleStatus()}
	h, registry := newTestHandler(provider)

	handle, err := registry.Start(context.Background(), []string{"vid-1"}, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := handle.Result(ctx); err != nil {
		t.Fatalf("Result() error = %v", err)
	}

	w := performJSON(h.GetStatus, "GET", "/api/analyze/status/job-1", nil,
		gin.Params{{Key: "jobID", Value: "job-1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("GetStatus() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "completed" {
		t.Errorf("status = %v, want completed", resp["status"])
	}
	if resp["data"] == nil {
		t.Error("data should carry the terminal result")
	}
}

func TestAnalysisHandler_GetStatus_Failed(t *testing.T) {
	provider := &stubProvider{jobID: "job-1", status: &models.AnalysisStatus{
		State:        models.JobStateFailed,
		ErrorMessage: "video could not be indexed",
	}}
	h, registry := newTestHandler(provider)

	handle, err := registry.Start(context.Background(), []string{"vid-1"}, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = handle.Result(ctx)

	w := performJSON(h.GetStatus, "GET", "/api/analyze/status/job-1", nil,
		gin.Params{{Key: "jobID", Value: "job-1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("GetStatus() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "failed" {
		t.Errorf("status = %v, want failed", resp["status"])
	}
	if resp["error"] == nil || resp["error"] == "" {
		t.Error("error message should be present for failed jobs")
	}
}

func TestAnalysisHandler_GetStatus_Unknown(t *testing.T) {
	provider := &stubProvider{jobID: "job-1", status: completedSingleStatus()}
	h, _ := newTestHandler(provider)

	w := performJSON(h.GetStatus, "GET", "/api/analyze/status/missing", nil,
		gin.Params{{Key: "jobID", Value: "missing"}})

	if w.Code != http.StatusNotFound {
		t.Errorf("GetStatus() status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAnalysisHandler_CancelJob(t *testing.T) {
	provider := &stubProvider{jobID: "job-1", status: &models.AnalysisStatus{
		State:    models.JobStateProcessing,
		Progress: 10,
	}}
	h, registry := newTestHandler(provider)

	if _, err := registry.Start(context.Background(), []string{"vid-1"}, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w := performJSON(h.CancelJob, "DELETE", "/api/analyze/job-1", nil,
		gin.Params{{Key: "jobID", Value: "job-1"}})

	if w.Code != http.StatusAccepted {
		t.Errorf("CancelJob() status = %d, want %d", w.Code, http.StatusAccepted)
	}

	handle, ok := registry.Get("job-1")
	if !ok {
		t.Fatal("handle should still be tracked after cancel")
	}
	if !handle.Cancelled() {
		t.Error("handle should be cancelled")
	}

	// Status for a cancelled, unsettled job reports cancelled.
	w = performJSON(h.GetStatus, "GET", "/api/analyze/status/job-1", nil,
		gin.Params{{Key: "jobID", Value: "job-1"}})
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "cancelled" {
		t.Errorf("status = %v, want cancelled", resp["status"])
	}
}

func TestAnalysisHandler_CancelJob_Unknown(t *testing.T) {
	provider := &stubProvider{jobID: "job-1", status: completedSingleStatus()}
	h, _ := newTestHandler(provider)

	w := performJSON(h.CancelJob, "DELETE", "/api/analyze/missing", nil,
		gin.Params{{Key: "jobID", Value: "missing"}})

	if w.Code != http.StatusNotFound {
		t.Errorf("CancelJob() status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAnalysisHandler_ListHistory_NotConfigured(t *testing.T) {
	provider := &stubProvider{jobID: "job-1", status: completedSingleStatus()}
	h, _ := newTestHandler(provider)

	w := performJSON(h.ListHistory, "GET", "/api/analyze/history", nil, nil)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("ListHistory() status = %d, want %d", w.Code, http.StatusNotImplemented)
	}
}

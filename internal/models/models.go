// Package models contains the data models and DTOs for the sponsorship
// analysis orchestration service.
package models

import (
	"time"
)

// JobMode distinguishes single-video from multi-video analysis requests.
type JobMode string

// JobMode constants.
const (
	JobModeSingle JobMode = "SINGLE"
	JobModeBatch  JobMode = "BATCH"
)

// JobState represents the provider-reported state of an analysis job.
type JobState string

// JobState constants. Completed and Failed are terminal.
const (
	JobStatePending    JobState = "pending"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// IsTerminal reports whether no further state transitions can occur.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Stage is a coarse, ordered label describing where the provider is in its
// pipeline. Display-only: stages never gate orchestration logic.
type Stage string

// Pipeline stages in order.
const (
	StageInitialization Stage = "initialization"
	StageBrandDetection Stage = "brand_detection"
	StageBrandAnalysis  Stage = "brand_analysis"
	StageProcessing     Stage = "processing"
	StageMetrics        Stage = "metrics"
	StageFinalizing     Stage = "finalizing"
)

// Stages lists the fixed pipeline stage enumeration in order.
func Stages() []Stage {
	return []Stage{
		StageInitialization,
		StageBrandDetection,
		StageBrandAnalysis,
		StageProcessing,
		StageMetrics,
		StageFinalizing,
	}
}

// SponsorshipCategory is the mutually exclusive classification of a brand
// appearance: interruptive ad placement vs in-game/in-event placement.
type SponsorshipCategory string

// SponsorshipCategory constants.
const (
	CategoryAdPlacement     SponsorshipCategory = "ad_placement"
	CategoryInGamePlacement SponsorshipCategory = "in_game_placement"
)

// AnalysisJob identifies one outstanding request to the analysis provider.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AnalysisJob struct {
	JobID             string    `json:"job_id"`
	Mode              JobMode   `json:"mode"`
	RequestedVideoIDs []string  `json:"requested_video_ids"`
	RequestedBrands   []string  `json:"requested_brands"`
	CreatedAt         time.Time `json:"created_at"`
}

// AnalysisStatus is one snapshot returned by a status poll. Progress is not
// guaranteed monotonic by the provider and is displayed as reported.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AnalysisStatus struct {
	State         JobState        `json:"status"`
	Progress      int             `json:"progress"`
	Stage         Stage           `json:"stage,omitempty"`
	Message       string          `json:"message,omitempty"`
	Details       string          `json:"details,omitempty"`
	BrandsFound   []string        `json:"brands_found,omitempty"`
	ResultPayload *AnalysisResult `json:"data,omitempty"`
	ErrorMessage  string          `json:"error,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}

// BrandAppearance is one raw detection record. Timeline holds [start, end]
// in seconds, local to the appearance's source video.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type BrandAppearance struct {
	Timeline         [2]float64          `json:"timeline"`
	Brand            string              `json:"brand"`
	Type             string              `json:"type"`
	Category         SponsorshipCategory `json:"sponsorship_category"`
	Prominence       string              `json:"prominence"`
	Context          string              `json:"context"`
	Description      string              `json:"description"`
	SentimentContext string              `json:"sentiment_context"`
	ViewerAttention  string              `json:"viewer_attention"`
}

// Duration returns the exposure duration of the appearance in seconds.
func (a BrandAppearance) Duration() float64 {
	return a.Timeline[1] - a.Timeline[0]
}

// CategoryBreakdown holds the per-category slice of a brand's sponsorship
// breakdown. PercentageOfTotal is always recomputed from exposure sums.
type CategoryBreakdown struct {
	Count             int     `json:"count"`
	ExposureSeconds   float64 `json:"exposure_time"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
}

// SponsorshipBreakdown splits a brand's exposure between the two mutually
// exclusive categories. Invariant: when either count is > 0, the two
// percentages sum to 100 within rounding.
type SponsorshipBreakdown struct {
	AdPlacements     CategoryBreakdown `json:"ad_placements"`
	InGamePlacements CategoryBreakdown `json:"in_game_placements"`
}

// BrandMetric is one brand's aggregated performance within a single video or
// within a merged report.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type BrandMetric struct {
	Brand                string               `json:"brand"`
	TotalExposureSeconds float64              `json:"total_exposure_time"`
	TotalAppearances     int                  `json:"total_appearances"`
	ContextualValueScore float64              `json:"contextual_value_score"`
	SentimentScore       float64              `json:"sentiment_score"`
	SentimentLabel       string               `json:"sentiment_label"`
	AvgProminence        float64              `json:"avg_prominence"`
	AvgViewerAttention   float64              `json:"avg_viewer_attention"`
	SponsorshipBreakdown SponsorshipBreakdown `json:"sponsorship_breakdown"`
	Appearances          []BrandAppearance    `json:"appearances"`
}

// ReportSummary is the summary section of a single-video report.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ReportSummary struct {
	EventTitle            string   `json:"event_title"`
	AnalysisDate          string   `json:"analysis_date"`
	VideoDurationMinutes  float64  `json:"video_duration_minutes"`
	TotalBrandsDetected   int      `json:"total_brands_detected"`
	TotalBrandAppearances int      `json:"total_brand_appearances"`
	BrandsAnalyzed        []string `json:"brands_analyzed,omitempty"`
}

// SingleVideoReport is the terminal payload of a single-video job.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SingleVideoReport struct {
	Summary       *ReportSummary    `json:"summary,omitempty"`
	BrandMetrics  []BrandMetric     `json:"brand_metrics"`
	RawDetections []BrandAppearance `json:"raw_detections"`
	VideoID       string            `json:"video_id"`
	Filename      string            `json:"filename,omitempty"`
	Timestamp     string            `json:"analysis_timestamp,omitempty"`
}

// VideoTimeframe records one input video's slot on the synthetic combined
// timeline: a [StartTimeSeconds, EndTimeSeconds) interval obtained by laying
// videos end-to-end in request order.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoTimeframe struct {
	VideoID          string  `json:"video_id"`
	Filename         string  `json:"filename"`
	DurationMinutes  float64 `json:"duration_minutes"`
	StartTimeSeconds float64 `json:"start_time_seconds"`
	EndTimeSeconds   float64 `json:"end_time_seconds"`
}

// CombinedSummary is the summary section of a multi-video report.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CombinedSummary struct {
	TotalVideos             int              `json:"total_videos"`
	CombinedDurationMinutes float64          `json:"combined_duration_minutes"`
	TotalBrandsDetected     int              `json:"total_brands_detected"`
	TotalBrandAppearances   int              `json:"total_brand_appearances"`
	TopPerformingBrand      string           `json:"top_performing_brand,omitempty"`
	TopBrandScore           float64          `json:"top_brand_score"`
	VideosAnalyzed          []VideoTimeframe `json:"videos_analyzed"`
}

// CombinedReport is the merged output of aggregating N single-video reports.
// Appearance timelines inside BrandMetrics remain local to their source
// videos; RawDetections carry the explicitly reprojected global timeline.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CombinedReport struct {
	CombinedSummary    *CombinedSummary    `json:"combined_summary,omitempty"`
	BrandMetrics       []BrandMetric       `json:"combined_brand_metrics"`
	RawDetections      []BrandAppearance   `json:"raw_detections"`
	IndividualAnalyses []SingleVideoReport `json:"individual_analyses,omitempty"`
	VideoIDs           []string            `json:"video_ids"`
	Timestamp          string              `json:"analysis_timestamp,omitempty"`
}

// AnalysisResult is the terminal payload of a job. Exactly one of the two
// report shapes is populated, matching the job mode.
type AnalysisResult struct {
	Single   *SingleVideoReport
	Combined *CombinedReport
}

// JobEvent is the message published when a job reaches a terminal outcome.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type JobEvent struct {
	EventID   string    `json:"event_id"`
	JobID     string    `json:"job_id"`
	Mode      JobMode   `json:"mode"`
	VideoIDs  []string  `json:"video_ids"`
	State     JobState  `json:"state"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Video describes one entry in the provider's video catalog.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Video struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	Duration     float64 `json:"duration"`
	CreatedAt    string  `json:"created_at,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Status       string  `json:"status,omitempty"`
}

// VideoListing is the provider's catalog listing response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoListing struct {
	Videos     []Video `json:"videos"`
	TotalCount int     `json:"total_count"`
	Message    string  `json:"message,omitempty"`
}

// DisplayProgress is the stable projection of a raw status snapshot consumed
// by progress UI. StageIndex is a lookup into StageList, never derived from
// Percent.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DisplayProgress struct {
	Percent     int      `json:"percent"`
	Headline    string   `json:"headline"`
	Details     string   `json:"details,omitempty"`
	StageIndex  int      `json:"stage_index"`
	StageList   []Stage  `json:"stage_list"`
	BrandsFound []string `json:"brands_found"`
}

// StartRequestDTO is the request body for starting an analysis.
type StartRequestDTO struct {
	VideoIDs []string `json:"video_ids" binding:"required,min=1"`
	Brands   []string `json:"brands"`
}

// StartResponseDTO is the response body for a started analysis.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type StartResponseDTO struct {
	JobID    string   `json:"job_id"`
	Mode     JobMode  `json:"mode"`
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	VideoIDs []string `json:"video_ids"`
	Brands   []string `json:"selected_brands"`
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

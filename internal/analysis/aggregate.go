package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
)

// brandAccumulator collects one brand's running totals while merging reports.
type brandAccumulator struct {
	exposureSeconds  float64
	appearances      int
	adCount          int
	adExposure       float64
	inGameCount      int
	inGameExposure   float64
	contextualSum    float64
	sentimentSum     float64
	prominenceSum    float64
	attentionSum     float64
	reportsWithBrand int
	appearanceList   []models.BrandAppearance
}

// Combine merges N completed single-video reports into one combined report.
// Inputs must be in the same order as the videos were requested: the synthetic
// combined timeline is laid out end-to-end in input order, so reordering
// inputs changes every boundary.
//
// Per-brand exposure and appearance counts are summed across inputs; the
// normalized scores are the unweighted arithmetic mean across the inputs that
// contain the brand. Sponsorship breakdown percentages are recomputed from the
// summed category exposures, never averaged from per-input percentages.
//
// Appearance timelines inside the merged brand metrics stay local to their
// source videos; the report's RawDetections are reprojected onto the combined
// timeline via ReprojectDetections.
//
// If any input is missing or malformed the whole combination fails; no
// partial report is produced.
func Combine(reports []models.SingleVideoReport) (*models.CombinedReport, error) {
	if len(reports) == 0 {
		return nil, &AggregationFailedError{Message: "no analyses to combine"}
	}
	for i, r := range reports {
		if r.Summary == nil {
			return nil, &AggregationFailedError{
				Message: fmt.Sprintf("analysis %d (video %s) has no summary section", i, r.VideoID),
			}
		}
	}

	frames := LayoutTimeline(reports)

	accumulators := make(map[string]*brandAccumulator)
	var brandOrder []string

	for _, report := range reports {
		for _, metric := range report.BrandMetrics {
			acc, ok := accumulators[metric.Brand]
			if !ok {
				acc = &brandAccumulator{}
				accumulators[metric.Brand] = acc
				brandOrder = append(brandOrder, metric.Brand)
			}

			acc.exposureSeconds += metric.TotalExposureSeconds
			acc.appearances += metric.TotalAppearances
			acc.adCount += metric.SponsorshipBreakdown.AdPlacements.Count
			acc.adExposure += metric.SponsorshipBreakdown.AdPlacements.ExposureSeconds
			acc.inGameCount += metric.SponsorshipBreakdown.InGamePlacements.Count
			acc.inGameExposure += metric.SponsorshipBreakdown.InGamePlacements.ExposureSeconds
			acc.contextualSum += metric.ContextualValueScore
			acc.sentimentSum += metric.SentimentScore
			acc.prominenceSum += metric.AvgProminence
			acc.attentionSum += metric.AvgViewerAttention
			acc.reportsWithBrand++
			acc.appearanceList = append(acc.appearanceList, metric.Appearances...)
		}
	}

	merged := make([]models.BrandMetric, 0, len(brandOrder))
	totalAppearances := 0
	for _, brand := range brandOrder {
		acc := accumulators[brand]
		n := float64(acc.reportsWithBrand)

		metric := models.BrandMetric{
			Brand:                brand,
			TotalExposureSeconds: round2(acc.exposureSeconds),
			TotalAppearances:     acc.appearances,
			ContextualValueScore: round1(acc.contextualSum / n),
			SentimentScore:       round2(acc.sentimentSum / n),
			AvgProminence:        round2(acc.prominenceSum / n),
			AvgViewerAttention:   round2(acc.attentionSum / n),
			Appearances:          acc.appearanceList,
			SponsorshipBreakdown: recomputeBreakdown(acc),
		}
		metric.SentimentLabel = sentimentLabel(metric.SentimentScore)

		merged = append(merged, metric)
		totalAppearances += acc.appearances
	}

	// Rank by exposure, ties broken by name for determinism.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].TotalExposureSeconds != merged[j].TotalExposureSeconds {
			return merged[i].TotalExposureSeconds > merged[j].TotalExposureSeconds
		}
		return merged[i].Brand < merged[j].Brand
	})

	summary := &models.CombinedSummary{
		TotalVideos:           len(reports),
		TotalBrandsDetected:   len(merged),
		TotalBrandAppearances: totalAppearances,
		VideosAnalyzed:        frames,
	}
	for _, r := range reports {
		summary.CombinedDurationMinutes += r.Summary.VideoDurationMinutes
	}
	summary.CombinedDurationMinutes = round1(summary.CombinedDurationMinutes)
	if len(merged) > 0 {
		summary.TopPerformingBrand = merged[0].Brand
		summary.TopBrandScore = merged[0].ContextualValueScore
	}

	detections, err := ReprojectDetections(reports, frames)
	if err != nil {
		return nil, err
	}

	videoIDs := make([]string, len(reports))
	for i, r := range reports {
		videoIDs[i] = r.VideoID
	}

	return &models.CombinedReport{
		CombinedSummary:    summary,
		BrandMetrics:       merged,
		RawDetections:      detections,
		IndividualAnalyses: reports,
		VideoIDs:           videoIDs,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// LayoutTimeline assigns each input video a [start, end) interval on a single
// continuous synthetic timeline, laying durations end-to-end in input order
// starting at zero.
func LayoutTimeline(reports []models.SingleVideoReport) []models.VideoTimeframe {
	frames := make([]models.VideoTimeframe, 0, len(reports))
	cumulative := 0.0
	for _, r := range reports {
		durationSeconds := 0.0
		durationMinutes := 0.0
		if r.Summary != nil {
			durationMinutes = r.Summary.VideoDurationMinutes
			durationSeconds = durationMinutes * 60
		}

		filename := r.Filename
		if filename == "" {
			id := r.VideoID
			if len(id) > 8 {
				id = id[:8]
			}
			filename = "Video " + id
		}

		frames = append(frames, models.VideoTimeframe{
			VideoID:          r.VideoID,
			Filename:         filename,
			DurationMinutes:  durationMinutes,
			StartTimeSeconds: cumulative,
			EndTimeSeconds:   cumulative + durationSeconds,
		})
		cumulative += durationSeconds
	}
	return frames
}

// ReprojectDetections rewrites every report's raw detections onto the
// combined timeline by adding the owning video's start offset from the
// boundary table. Input order must match the boundary table's order.
func ReprojectDetections(reports []models.SingleVideoReport, frames []models.VideoTimeframe) ([]models.BrandAppearance, error) {
	if len(reports) != len(frames) {
		return nil, &AggregationFailedError{
			Message: fmt.Sprintf("boundary table has %d entries for %d analyses", len(frames), len(reports)),
		}
	}

	var detections []models.BrandAppearance
	for i, report := range reports {
		offset := frames[i].StartTimeSeconds
		for _, d := range report.RawDetections {
			shifted := d
			shifted.Timeline[0] += offset
			shifted.Timeline[1] += offset
			detections = append(detections, shifted)
		}
	}
	return detections, nil
}

// CategorizeAppearance derives the sponsorship category for appearances the
// provider returned without one, from the placement type and scene context.
func CategorizeAppearance(placementType, context string) models.SponsorshipCategory {
	switch placementType {
	case "digital_overlay", "ctv_ad", "overlay_ad", "squeeze_ad", "commercial":
		return models.CategoryAdPlacement
	case "logo", "jersey_sponsor", "stadium_signage", "product_placement", "audio_mention":
		return models.CategoryInGamePlacement
	}
	if context == "commercial" {
		return models.CategoryAdPlacement
	}
	return models.CategoryInGamePlacement
}

func recomputeBreakdown(acc *brandAccumulator) models.SponsorshipBreakdown {
	breakdown := models.SponsorshipBreakdown{
		AdPlacements: models.CategoryBreakdown{
			Count:           acc.adCount,
			ExposureSeconds: round2(acc.adExposure),
		},
		InGamePlacements: models.CategoryBreakdown{
			Count:           acc.inGameCount,
			ExposureSeconds: round2(acc.inGameExposure),
		},
	}

	categorized := acc.adExposure + acc.inGameExposure
	if categorized > 0 {
		breakdown.AdPlacements.PercentageOfTotal = round1(100 * acc.adExposure / categorized)
		breakdown.InGamePlacements.PercentageOfTotal = round1(100 * acc.inGameExposure / categorized)
	}
	return breakdown
}

func sentimentLabel(score float64) string {
	switch {
	case score > 0.1:
		return "positive"
	case score < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

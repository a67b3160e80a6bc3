package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
)

func makeReport(videoID string, durationMinutes float64, metrics ...models.BrandMetric) models.SingleVideoReport {
	appearances := 0
	for _, m := range metrics {
		appearances += m.TotalAppearances
	}
	return models.SingleVideoReport{
		VideoID:  videoID,
		Filename: videoID + ".mp4",
		Summary: &models.ReportSummary{
			EventTitle:            "Match " + videoID,
			VideoDurationMinutes:  durationMinutes,
			TotalBrandsDetected:   len(metrics),
			TotalBrandAppearances: appearances,
		},
		BrandMetrics: metrics,
	}
}

func makeMetric(brand string, exposure float64, appearances int) models.BrandMetric {
	return models.BrandMetric{
		Brand:                brand,
		TotalExposureSeconds: exposure,
		TotalAppearances:     appearances,
		ContextualValueScore: 5.0,
		SentimentScore:       0.2,
		AvgProminence:        0.5,
		AvgViewerAttention:   0.5,
		SponsorshipBreakdown: models.SponsorshipBreakdown{
			AdPlacements: models.CategoryBreakdown{
				Count:           appearances,
				ExposureSeconds: exposure,
			},
		},
	}
}

func TestCombine_SumsExposureAndAppearances(t *testing.T) {
	t.Parallel()

	reports := []models.SingleVideoReport{
		makeReport("vid-1", 10, makeMetric("Nike", 120.5, 3)),
		makeReport("vid-2", 5, makeMetric("Nike", 80.25, 5)),
	}

	combined, err := Combine(reports)
	require.NoError(t, err)
	require.Len(t, combined.BrandMetrics, 1)

	nike := combined.BrandMetrics[0]
	assert.Equal(t, "Nike", nike.Brand)
	assert.InDelta(t, 200.75, nike.TotalExposureSeconds, 0.001)
	assert.Equal(t, 8, nike.TotalAppearances)
	assert.Equal(t, 8, combined.CombinedSummary.TotalBrandAppearances)
	assert.Equal(t, 2, combined.CombinedSummary.TotalVideos)
	assert.Equal(t, 1, combined.CombinedSummary.TotalBrandsDetected)
}

func TestCombine_AveragesScoresOverReportsContainingBrand(t *testing.T) {
	t.Parallel()

	nikeA := makeMetric("Nike", 100, 2)
	nikeA.ContextualValueScore = 8.0
	nikeA.SentimentScore = 0.4
	nikeB := makeMetric("Nike", 100, 2)
	nikeB.ContextualValueScore = 6.0
	nikeB.SentimentScore = -0.2

	// Adidas appears in only one of the three inputs; its scores must not be
	// diluted by the videos it does not appear in.
	adidas := makeMetric("Adidas", 50, 1)
	adidas.ContextualValueScore = 7.5
	adidas.SentimentScore = -0.5

	reports := []models.SingleVideoReport{
		makeReport("vid-1", 10, nikeA),
		makeReport("vid-2", 10, nikeB, adidas),
		makeReport("vid-3", 10),
	}

	combined, err := Combine(reports)
	require.NoError(t, err)
	require.Len(t, combined.BrandMetrics, 2)

	byBrand := map[string]models.BrandMetric{}
	for _, m := range combined.BrandMetrics {
		byBrand[m.Brand] = m
	}

	assert.InDelta(t, 7.0, byBrand["Nike"].ContextualValueScore, 0.001)
	assert.InDelta(t, 0.1, byBrand["Nike"].SentimentScore, 0.001)
	assert.Equal(t, "neutral", byBrand["Nike"].SentimentLabel)

	assert.InDelta(t, 7.5, byBrand["Adidas"].ContextualValueScore, 0.001)
	assert.InDelta(t, -0.5, byBrand["Adidas"].SentimentScore, 0.001)
	assert.Equal(t, "negative", byBrand["Adidas"].SentimentLabel)
}

func TestCombine_RanksByExposureThenName(t *testing.T) {
	t.Parallel()

	reports := []models.SingleVideoReport{
		makeReport("vid-1", 10,
			makeMetric("Pepsi", 50, 1),
			makeMetric("Nike", 200, 4),
			makeMetric("Adidas", 50, 2),
		),
	}

	combined, err := Combine(reports)
	require.NoError(t, err)
	require.Len(t, combined.BrandMetrics, 3)

	assert.Equal(t, "Nike", combined.BrandMetrics[0].Brand)
	assert.Equal(t, "Adidas", combined.BrandMetrics[1].Brand)
	assert.Equal(t, "Pepsi", combined.BrandMetrics[2].Brand)

	assert.Equal(t, "Nike", combined.CombinedSummary.TopPerformingBrand)
	assert.InDelta(t, 5.0, combined.CombinedSummary.TopBrandScore, 0.001)
}

func TestCombine_IsDeterministic(t *testing.T) {
	t.Parallel()

	reports := []models.SingleVideoReport{
		makeReport("vid-1", 10, makeMetric("Nike", 100, 2), makeMetric("Adidas", 100, 2)),
		makeReport("vid-2", 5, makeMetric("Puma", 100, 1)),
	}

	first, err := Combine(reports)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Combine(reports)
		require.NoError(t, err)
		require.Len(t, again.BrandMetrics, len(first.BrandMetrics))
		for j := range first.BrandMetrics {
			assert.Equal(t, first.BrandMetrics[j].Brand, again.BrandMetrics[j].Brand)
			assert.Equal(t, first.BrandMetrics[j].TotalExposureSeconds, again.BrandMetrics[j].TotalExposureSeconds)
		}
	}
}

func TestCombine_RecomputesBreakdownPercentages(t *testing.T) {
	t.Parallel()

	nikeA := makeMetric("Nike", 100, 2)
	nikeA.SponsorshipBreakdown = models.SponsorshipBreakdown{
		AdPlacements:     models.CategoryBreakdown{Count: 1, ExposureSeconds: 30, PercentageOfTotal: 30},
		InGamePlacements: models.CategoryBreakdown{Count: 1, ExposureSeconds: 70, PercentageOfTotal: 70},
	}
	nikeB := makeMetric("Nike", 60, 1)
	nikeB.SponsorshipBreakdown = models.SponsorshipBreakdown{
		AdPlacements: models.CategoryBreakdown{Count: 1, ExposureSeconds: 60, PercentageOfTotal: 100},
	}

	combined, err := Combine([]models.SingleVideoReport{
		makeReport("vid-1", 10, nikeA),
		makeReport("vid-2", 10, nikeB),
	})
	require.NoError(t, err)
	require.Len(t, combined.BrandMetrics, 1)

	breakdown := combined.BrandMetrics[0].SponsorshipBreakdown
	assert.Equal(t, 2, breakdown.AdPlacements.Count)
	assert.InDelta(t, 90, breakdown.AdPlacements.ExposureSeconds, 0.001)
	assert.Equal(t, 1, breakdown.InGamePlacements.Count)
	assert.InDelta(t, 70, breakdown.InGamePlacements.ExposureSeconds, 0.001)

	// 90 / 160 and 70 / 160, recomputed from sums, not averaged percentages.
	assert.InDelta(t, 56.3, breakdown.AdPlacements.PercentageOfTotal, 0.001)
	assert.InDelta(t, 43.8, breakdown.InGamePlacements.PercentageOfTotal, 0.001)

	total := breakdown.AdPlacements.PercentageOfTotal + breakdown.InGamePlacements.PercentageOfTotal
	assert.LessOrEqual(t, math.Abs(total-100), 0.1)
}

func TestCombine_ZeroCategorizedExposure(t *testing.T) {
	t.Parallel()

	metric := makeMetric("Nike", 0, 0)
	metric.SponsorshipBreakdown = models.SponsorshipBreakdown{}

	combined, err := Combine([]models.SingleVideoReport{makeReport("vid-1", 10, metric)})
	require.NoError(t, err)
	require.Len(t, combined.BrandMetrics, 1)

	breakdown := combined.BrandMetrics[0].SponsorshipBreakdown
	assert.Zero(t, breakdown.AdPlacements.PercentageOfTotal)
	assert.Zero(t, breakdown.InGamePlacements.PercentageOfTotal)
}

func TestCombine_FailsAtomically(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		combined, err := Combine(nil)
		assert.Nil(t, combined)

		var aggErr *AggregationFailedError
		require.ErrorAs(t, err, &aggErr)
	})

	t.Run("one report without summary", func(t *testing.T) {
		t.Parallel()

		good := makeReport("vid-1", 10, makeMetric("Nike", 100, 2))
		bad := models.SingleVideoReport{VideoID: "vid-2"}

		combined, err := Combine([]models.SingleVideoReport{good, bad})
		assert.Nil(t, combined)

		var aggErr *AggregationFailedError
		require.ErrorAs(t, err, &aggErr)
		assert.Contains(t, aggErr.Message, "vid-2")
	})
}

func TestLayoutTimeline_LaysVideosEndToEnd(t *testing.T) {
	t.Parallel()

	reports := []models.SingleVideoReport{
		makeReport("vid-1", 10),
		makeReport("vid-2", 5),
		makeReport("vid-3", 15),
	}

	frames := LayoutTimeline(reports)
	require.Len(t, frames, 3)

	assert.Equal(t, 0.0, frames[0].StartTimeSeconds)
	assert.Equal(t, 600.0, frames[0].EndTimeSeconds)
	assert.Equal(t, 600.0, frames[1].StartTimeSeconds)
	assert.Equal(t, 900.0, frames[1].EndTimeSeconds)
	assert.Equal(t, 900.0, frames[2].StartTimeSeconds)
	assert.Equal(t, 1800.0, frames[2].EndTimeSeconds)

	// Reordering the inputs moves every boundary.
	reordered := LayoutTimeline([]models.SingleVideoReport{reports[2], reports[0], reports[1]})
	assert.Equal(t, 0.0, reordered[0].StartTimeSeconds)
	assert.Equal(t, 900.0, reordered[0].EndTimeSeconds)
	assert.Equal(t, 900.0, reordered[1].StartTimeSeconds)
	assert.Equal(t, 1500.0, reordered[1].EndTimeSeconds)
}

func TestLayoutTimeline_FilenameFallback(t *testing.T) {
	t.Parallel()

	report := makeReport("abcdefghijklmnop", 10)
	report.Filename = ""

	frames := LayoutTimeline([]models.SingleVideoReport{report})
	require.Len(t, frames, 1)
	assert.Equal(t, "Video abcdefgh", frames[0].Filename)
}

func TestReprojectDetections(t *testing.T) {
	t.Parallel()

	r1 := makeReport("vid-1", 10)
	r1.RawDetections = []models.BrandAppearance{
		{Brand: "Nike", Timeline: [2]float64{10, 20}},
	}
	r2 := makeReport("vid-2", 5)
	r2.RawDetections = []models.BrandAppearance{
		{Brand: "Adidas", Timeline: [2]float64{30, 45}},
	}

	reports := []models.SingleVideoReport{r1, r2}
	frames := LayoutTimeline(reports)

	detections, err := ReprojectDetections(reports, frames)
	require.NoError(t, err)
	require.Len(t, detections, 2)

	assert.Equal(t, [2]float64{10, 20}, detections[0].Timeline)
	assert.Equal(t, [2]float64{630, 645}, detections[1].Timeline)

	// Source reports must be untouched.
	assert.Equal(t, [2]float64{30, 45}, r2.RawDetections[0].Timeline)

	t.Run("boundary table mismatch", func(t *testing.T) {
		t.Parallel()

		_, err := ReprojectDetections(reports, frames[:1])
		var aggErr *AggregationFailedError
		require.ErrorAs(t, err, &aggErr)
	})
}

func TestCombine_KeepsLocalAppearanceTimelines(t *testing.T) {
	t.Parallel()

	nike := makeMetric("Nike", 20, 1)
	nike.Appearances = []models.BrandAppearance{
		{Brand: "Nike", Timeline: [2]float64{5, 25}},
	}

	r1 := makeReport("vid-1", 10)
	r2 := makeReport("vid-2", 10, nike)

	combined, err := Combine([]models.SingleVideoReport{r1, r2})
	require.NoError(t, err)
	require.Len(t, combined.BrandMetrics, 1)
	require.Len(t, combined.BrandMetrics[0].Appearances, 1)

	// Appearances inside brand metrics stay local to their source video even
	// though vid-2 starts at 600s on the combined timeline.
	assert.Equal(t, [2]float64{5, 25}, combined.BrandMetrics[0].Appearances[0].Timeline)
}

func TestCategorizeAppearance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		placementType string
		context       string
		expected      models.SponsorshipCategory
	}{
		{"digital overlay is an ad", "digital_overlay", "", models.CategoryAdPlacement},
		{"commercial type is an ad", "commercial", "", models.CategoryAdPlacement},
		{"squeeze ad is an ad", "squeeze_ad", "live_game", models.CategoryAdPlacement},
		{"jersey sponsor is in-game", "jersey_sponsor", "", models.CategoryInGamePlacement},
		{"stadium signage is in-game", "stadium_signage", "live_game", models.CategoryInGamePlacement},
		{"audio mention is in-game", "audio_mention", "", models.CategoryInGamePlacement},
		{"unknown type with commercial context is an ad", "banner", "commercial", models.CategoryAdPlacement},
		{"unknown type defaults to in-game", "banner", "live_game", models.CategoryInGamePlacement},
		{"empty everything defaults to in-game", "", "", models.CategoryInGamePlacement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, CategorizeAppearance(tt.placementType, tt.context))
		})
	}
}

func TestCombine_SummaryTotals(t *testing.T) {
	t.Parallel()

	reports := []models.SingleVideoReport{
		makeReport("vid-1", 12.5, makeMetric("Nike", 100, 2)),
		makeReport("vid-2", 7.5, makeMetric("Adidas", 50, 1)),
	}

	combined, err := Combine(reports)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, combined.CombinedSummary.CombinedDurationMinutes, 0.001)
	assert.Equal(t, []string{"vid-1", "vid-2"}, combined.VideoIDs)
	require.Len(t, combined.CombinedSummary.VideosAnalyzed, 2)
	assert.Equal(t, 750.0, combined.CombinedSummary.VideosAnalyzed[1].StartTimeSeconds)
	assert.Len(t, combined.IndividualAnalyses, 2)
}

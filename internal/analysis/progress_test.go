package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
)

func TestProject_StageIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stage    models.Stage
		expected int
	}{
		{"initialization is first", models.StageInitialization, 0},
		{"brand detection is second", models.StageBrandDetection, 1},
		{"finalizing is last", models.StageFinalizing, 5},
		{"unreported stage maps to -1", "", -1},
		{"unknown stage maps to -1", models.Stage("uploading"), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status := &models.AnalysisStatus{
				State:    models.JobStateProcessing,
				Progress: 40,
				Stage:    tt.stage,
			}
			progress := Project(status, nil)

			assert.Equal(t, tt.expected, progress.StageIndex)
			assert.Equal(t, models.Stages(), progress.StageList)
		})
	}
}

func TestProject_NeverInfersStageFromPercent(t *testing.T) {
	t.Parallel()

	// A high percentage with no reported stage still yields -1.
	status := &models.AnalysisStatus{
		State:    models.JobStateProcessing,
		Progress: 95,
	}
	progress := Project(status, nil)

	assert.Equal(t, 95, progress.Percent)
	assert.Equal(t, -1, progress.StageIndex)
}

func TestProject_BrandUnionSorted(t *testing.T) {
	t.Parallel()

	status := &models.AnalysisStatus{
		State:       models.JobStateProcessing,
		BrandsFound: []string{"Puma", "Nike"},
	}
	soFar := map[string]struct{}{
		"Adidas": {},
		"Nike":   {},
	}

	progress := Project(status, soFar)
	assert.Equal(t, []string{"Adidas", "Nike", "Puma"}, progress.BrandsFound)
}

func TestProjector_BrandSetGrowsMonotonically(t *testing.T) {
	t.Parallel()

	projector := NewProjector()

	first := projector.Observe(&models.AnalysisStatus{
		State:       models.JobStateProcessing,
		Progress:    20,
		BrandsFound: []string{"Nike", "Adidas"},
	})
	require.Equal(t, []string{"Adidas", "Nike"}, first.BrandsFound)

	// A later snapshot may drop brands; the displayed set must not shrink.
	second := projector.Observe(&models.AnalysisStatus{
		State:       models.JobStateProcessing,
		Progress:    60,
		BrandsFound: []string{"Puma"},
	})
	assert.Equal(t, []string{"Adidas", "Nike", "Puma"}, second.BrandsFound)

	third := projector.Observe(&models.AnalysisStatus{
		State:    models.JobStateProcessing,
		Progress: 80,
	})
	assert.Equal(t, []string{"Adidas", "Nike", "Puma"}, third.BrandsFound)
}

func TestProject_CopiesMessageFields(t *testing.T) {
	t.Parallel()

	status := &models.AnalysisStatus{
		State:    models.JobStateProcessing,
		Progress: 55,
		Stage:    models.StageProcessing,
		Message:  "Analyzing brand placements",
		Details:  "frame 1200 of 3600",
	}

	progress := Project(status, nil)
	assert.Equal(t, 55, progress.Percent)
	assert.Equal(t, "Analyzing brand placements", progress.Headline)
	assert.Equal(t, "frame 1200 of 3600", progress.Details)
	assert.Equal(t, 3, progress.StageIndex)
}

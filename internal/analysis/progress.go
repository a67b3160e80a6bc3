package analysis

import (
	"sort"

	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
)

// Project maps one raw status snapshot onto the stable DisplayProgress shape
// consumed by progress UI. brandsSoFar is the set of brand names already seen
// across the job's lifetime; the returned BrandsFound is its union with the
// snapshot's brands, sorted for stable display. Pure function, no I/O.
//
// StageIndex is the position of the snapshot's stage in the fixed pipeline
// enumeration: stages before it are completed, the stage at it is active,
// later stages are pending. It is -1 when the provider has not reported a
// stage yet. It is never inferred from the progress percentage.
func Project(status *models.AnalysisStatus, brandsSoFar map[string]struct{}) models.DisplayProgress {
	stages := models.Stages()

	stageIndex := -1
	for i, s := range stages {
		if s == status.Stage {
			stageIndex = i
			break
		}
	}

	union := make([]string, 0, len(brandsSoFar)+len(status.BrandsFound))
	seen := make(map[string]struct{}, len(brandsSoFar)+len(status.BrandsFound))
	for b := range brandsSoFar {
		seen[b] = struct{}{}
		union = append(union, b)
	}
	for _, b := range status.BrandsFound {
		if _, ok := seen[b]; !ok {
			seen[b] = struct{}{}
			union = append(union, b)
		}
	}
	sort.Strings(union)

	return models.DisplayProgress{
		Percent:     status.Progress,
		Headline:    status.Message,
		Details:     status.Details,
		StageIndex:  stageIndex,
		StageList:   stages,
		BrandsFound: union,
	}
}

// Projector accumulates the monotonically growing brand set across one job's
// lifetime and projects each snapshot through Project. Not safe for
// concurrent use; the orchestrator serializes calls on its polling loop.
type Projector struct {
	brandsSeen map[string]struct{}
}

// NewProjector creates a Projector with an empty brand set.
func NewProjector() *Projector {
	return &Projector{brandsSeen: make(map[string]struct{})}
}

// Observe projects a snapshot and folds its brands into the lifetime set.
func (p *Projector) Observe(status *models.AnalysisStatus) models.DisplayProgress {
	progress := Project(status, p.brandsSeen)
	for _, b := range status.BrandsFound {
		p.brandsSeen[b] = struct{}{}
	}
	return progress
}

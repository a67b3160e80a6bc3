package models

import (
	"encoding/json"
)

// UnmarshalJSON decodes a terminal result payload without assuming its shape.
// The provider returns a single-video report or a combined report in the same
// field; both are decoded and shape validation happens in the orchestrator,
// keyed off the requested mode.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		Summary         json.RawMessage `json:"summary"`
		CombinedSummary json.RawMessage `json:"combined_summary"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if len(probe.CombinedSummary) > 0 && string(probe.CombinedSummary) != "null" {
		var combined CombinedReport
		if err := json.Unmarshal(data, &combined); err != nil {
			return err
		}
		r.Combined = &combined
		return nil
	}

	var single SingleVideoReport
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	r.Single = &single
	return nil
}

// MarshalJSON encodes whichever report shape is populated. An empty result
// encodes as null.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Combined != nil:
		return json.Marshal(r.Combined)
	case r.Single != nil:
		return json.Marshal(r.Single)
	default:
		return []byte("null"), nil
	}
}

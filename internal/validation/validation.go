package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
)

var (
	videoIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	brandRegex   = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} .&'+-]{0,79}$`)
)

const maxVideosPerRequest = 20

type Validator struct {
	maxVideos int
}

func New(maxVideos int) *Validator {
	if maxVideos <= 0 {
		maxVideos = maxVideosPerRequest
	}
	return &Validator{maxVideos: maxVideos}
}

// ValidateStartRequest checks an analysis start request before it reaches the
// provider. Duplicate video ids are rejected so the combined timeline cannot
// contain the same footage twice.
func (v *Validator) ValidateStartRequest(req *models.StartRequestDTO) error {
	if len(req.VideoIDs) == 0 {
		return fmt.Errorf("at least one video ID is required")
	}
	if len(req.VideoIDs) > v.maxVideos {
		return fmt.Errorf("too many videos: %d exceeds the maximum of %d", len(req.VideoIDs), v.maxVideos)
	}

	seen := make(map[string]struct{}, len(req.VideoIDs))
	for _, id := range req.VideoIDs {
		if !videoIDRegex.MatchString(id) {
			return fmt.Errorf("invalid video ID format: %s", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate video ID: %s", id)
		}
		seen[id] = struct{}{}
	}

	for _, brand := range req.Brands {
		if strings.TrimSpace(brand) == "" {
			return fmt.Errorf("brand names must not be blank")
		}
		if !brandRegex.MatchString(brand) {
			return fmt.Errorf("invalid brand name: %s", brand)
		}
	}

	return nil
}

func (v *Validator) IsValidVideoID(videoID string) bool {
	return videoIDRegex.MatchString(videoID)
}

func (v *Validator) IsValidBrand(brand string) bool {
	return brandRegex.MatchString(brand)
}

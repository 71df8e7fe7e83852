package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/thinkbank-worker/internal/capability"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

// categoryHints maps Cloud Vision label descriptions (lowercased substrings)
// onto the worker's image categories.
var categoryHints = map[string][]string{
	"Screenshot":     {"screenshot", "web page", "software", "computer icon", "multimedia", "operating system"},
	"Document":       {"document", "paper", "receipt", "letter", "handwriting", "paper product"},
	"Food":           {"food", "dish", "cuisine", "ingredient", "recipe", "meal", "baked goods", "fruit"},
	"Animal":         {"animal", "mammal", "dog", "cat", "bird", "pet", "wildlife", "fish", "carnivore"},
	"Portrait":       {"person", "face", "smile", "portrait", "selfie", "human", "eyebrow", "hairstyle"},
	"Landscape":      {"landscape", "mountain", "sky", "nature", "beach", "cloud", "tree", "sea", "natural landscape"},
	"Graphic Design": {"graphic design", "graphics", "logo", "poster", "illustration", "font", "brand"},
}

// VisionClassifier classifies images with Cloud Vision label detection.
type VisionClassifier struct {
	log     *logger.Logger
	client  *vision.ImageAnnotatorClient
	timeout time.Duration
}

func NewVisionClassifier(ctx context.Context, log *logger.Logger) (*VisionClassifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	client, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionClassifier{
		log:     log.With("service", "gcp.VisionClassifier"),
		client:  client,
		timeout: 30 * time.Second,
	}, nil
}

func (s *VisionClassifier) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *VisionClassifier) Classify(ctx context.Context, img []byte, mimeType string, labels []string) (string, error) {
	if len(img) == 0 {
		return "", fmt.Errorf("image bytes required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: 20},
			},
		}},
	}
	resp, err := s.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", fmt.Errorf("vision returned no response")
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	scored := make([]ScoredLabel, 0, len(r0.LabelAnnotations))
	for _, a := range r0.LabelAnnotations {
		if a == nil {
			continue
		}
		scored = append(scored, ScoredLabel{Description: a.Description, Score: float64(a.Score)})
	}
	category := Categorize(scored, labels)
	s.log.Debug("vision labels categorized", "labels", len(scored), "category", category, "mime_type", mimeType)
	return category, nil
}

type ScoredLabel struct {
	Description string
	Score       float64
}

// Categorize sums label scores per category and returns the best allowed
// category, or "Other" when nothing matches.
func Categorize(labels []ScoredLabel, allowed []string) string {
	allow := map[string]bool{}
	for _, a := range allowed {
		allow[a] = true
	}
	totals := map[string]float64{}
	for _, l := range labels {
		desc := strings.ToLower(strings.TrimSpace(l.Description))
		if desc == "" {
			continue
		}
		for category, hints := range categoryHints {
			for _, h := range hints {
				if strings.Contains(desc, h) {
					totals[category] += l.Score
					break
				}
			}
		}
	}

	best, bestScore := "Other", 0.0
	for category, score := range totals {
		if len(allow) > 0 && !allow[category] {
			continue
		}
		// Ties break alphabetically so results are stable across map order.
		if score > bestScore || (score == bestScore && score > 0 && category < best) {
			best, bestScore = category, score
		}
	}
	return best
}

var _ capability.Classifier = (*VisionClassifier)(nil)

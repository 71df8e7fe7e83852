package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/yungbote/thinkbank-worker/internal/capability"
	"github.com/yungbote/thinkbank-worker/internal/domain/assets"
)

const (
	normalizedMime = "image/png"

	// TranslationSeparator sits between the English caption and its Chinese
	// rendering.
	TranslationSeparator = " | 中文: "

	CategoryOther      = "Other"
	CategoryDocument   = "Document"
	CategoryScreenshot = "Screenshot"
)

var (
	errEmptyTranslation = errors.New("empty translation")
	errNoGenerator      = errors.New("no generator configured")
	errNoClassifier     = errors.New("no classifier configured")
)

var translateOptions = capability.GenerateOptions{MaxTokens: 96, Temperature: 0.2, TopP: 0.9}

func (s *service) processImage(ctx context.Context, in Input, report Reporter) (*Output, error) {
	diag := map[string]any{"pipeline": string(KindImage)}
	out := &Output{Diagnostics: diag}

	raw, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := Required(ctx, "decode", func(context.Context) ([]byte, error) {
		return normalizeImage(raw, s.cfg.MaxImageSide)
	})
	if err != nil {
		return nil, err
	}
	diag["normalized_bytes"] = len(img)
	report(assets.StageProcessing, 0.3)

	caption, err := Required(ctx, "caption", func(ctx context.Context) (string, error) {
		return s.caps.Captioner.Caption(ctx, img, normalizedMime, s.cfg.CaptionInstruction)
	})
	if err != nil {
		return nil, err
	}
	caption = strings.TrimSpace(caption)

	zh := s.translate(ctx, caption, out)
	if zh != "" {
		caption = caption + TranslationSeparator + zh
	}

	category := s.classify(ctx, img, out)
	switch category {
	case CategoryDocument, CategoryScreenshot:
		tag := "[" + category + "]"
		if caption == "" {
			caption = tag
		} else {
			caption = caption + " | " + tag
		}
	}
	diag["category"] = category
	report(assets.StageEmbedding, 0.6)

	visual, err := Required(ctx, "embed_image", func(ctx context.Context) ([]float32, error) {
		return s.caps.Image.EmbedImage(ctx, img, normalizedMime)
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkDims("embed_image", visual, s.cfg.VisualDims); err != nil {
		return nil, err
	}

	semantic, err := Required(ctx, "embed_text", func(ctx context.Context) ([]float32, error) {
		return s.caps.Text.EmbedText(ctx, truncateRunes(caption, s.cfg.SemanticTextLimit))
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkDims("embed_text", semantic, s.cfg.SemanticDims); err != nil {
		return nil, err
	}

	out.Enrichment = &assets.Enrichment{
		Caption:        &caption,
		Category:       category,
		SemanticVector: semantic,
		VisualVector:   visual,
	}
	return out, nil
}

// translate renders the caption in Chinese, falling back to keyword tags.
// It returns "" when neither produced anything.
func (s *service) translate(ctx context.Context, caption string, out *Output) string {
	if caption == "" {
		return ""
	}
	res := BestEffort(ctx, "translate", func(ctx context.Context) (string, error) {
		if s.caps.Generator == nil {
			return "", errNoGenerator
		}
		text, err := s.caps.Generator.Generate(ctx, fmt.Sprintf(s.cfg.TranslatePrompt, caption), translateOptions)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", errEmptyTranslation
		}
		return text, nil
	}, func(error) string {
		return s.keywords.Annotate(caption)
	})
	if res.FellBack {
		out.Fallbacks = append(out.Fallbacks, "translate")
		out.Diagnostics["translate_error"] = res.Err.Error()
		if !errors.Is(res.Err, errNoGenerator) {
			s.log.Warn("Caption translation failed; using keyword tags", "error", res.Err)
		}
	}
	return res.Value
}

func (s *service) classify(ctx context.Context, img []byte, out *Output) string {
	res := BestEffort(ctx, "classify", func(ctx context.Context) (string, error) {
		if s.caps.Classifier == nil {
			return "", errNoClassifier
		}
		label, err := s.caps.Classifier.Classify(ctx, img, normalizedMime, s.cfg.Categories)
		if err != nil {
			return "", err
		}
		canon, ok := canonicalLabel(label, s.cfg.Categories)
		if !ok {
			return "", fmt.Errorf("label %q not in category set", label)
		}
		return canon, nil
	}, func(error) string {
		return CategoryOther
	})
	if res.FellBack {
		out.Fallbacks = append(out.Fallbacks, "classify")
		out.Diagnostics["classify_error"] = res.Err.Error()
		if !errors.Is(res.Err, errNoClassifier) {
			s.log.Warn("Image classification failed; using Other", "error", res.Err)
		}
	}
	return res.Value
}

func canonicalLabel(label string, allowed []string) (string, bool) {
	label = strings.TrimSpace(label)
	for _, a := range allowed {
		if strings.EqualFold(a, label) {
			return a, true
		}
	}
	return "", false
}

// normalizeImage decodes any registered format, flattens it onto white RGB,
// bounds the longest side by maxSide and re-encodes as PNG.
func normalizeImage(raw []byte, maxSide int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("decode image: empty bounds %v", b)
	}
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			h = max(1, h*maxSide/w)
			w = maxSide
		} else {
			w = max(1, w*maxSide/h)
			h = maxSide
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

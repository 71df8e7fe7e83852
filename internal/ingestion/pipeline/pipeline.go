package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/thinkbank-worker/internal/capability"
	"github.com/yungbote/thinkbank-worker/internal/domain/assets"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

var tracer = otel.Tracer("github.com/yungbote/thinkbank-worker/internal/ingestion/pipeline")

type Kind string

const (
	KindImage       Kind = "image"
	KindDocument    Kind = "document"
	KindText        Kind = "text"
	KindUnsupported Kind = "unsupported"
)

// Route picks the pipeline for a mime type. Parameters such as
// "; charset=utf-8" are ignored.
func Route(mimeType string) Kind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case mt == "application/pdf":
		return KindDocument
	case strings.HasPrefix(mt, "text/"):
		return KindText
	default:
		return KindUnsupported
	}
}

type Input struct {
	AssetID  uuid.UUID
	MimeType string
	// Path is the local copy of the object; the caller removes it.
	Path string
}

// Reporter receives coarse progress. It must not block.
type Reporter func(stage string, progress float64)

type Output struct {
	Kind       Kind
	Enrichment *assets.Enrichment
	// Fallbacks names the best-effort steps that used their fallback.
	Fallbacks   []string
	Diagnostics map[string]any
}

type Service interface {
	Process(ctx context.Context, in Input, report Reporter) (*Output, error)
}

type Config struct {
	CaptionInstruction string
	TranslatePrompt    string
	Categories         []string

	SemanticTextLimit int
	DocumentTextLimit int
	PreviewLimit      int
	MaxImageSide      int

	// Zero disables the dimension check.
	SemanticDims int
	VisualDims   int
}

func DefaultConfig() Config {
	return Config{
		CaptionInstruction: "Describe this image with key objects and actions.",
		TranslatePrompt:    "Translate this image caption into concise Chinese. Return only the Chinese sentence.\n\nCaption: %s",
		Categories:         []string{"Landscape", "Portrait", "Document", "Screenshot", "Food", "Animal", "Graphic Design", "Other"},
		SemanticTextLimit:  2000,
		DocumentTextLimit:  8000,
		PreviewLimit:       500,
		MaxImageSide:       1024,
		SemanticDims:       assets.SemanticDims,
		VisualDims:         assets.VisualDims,
	}
}

type service struct {
	log      *logger.Logger
	caps     capability.Set
	keywords *KeywordTable
	cfg      Config

	extractPDF func(path string) (string, error)
}

func New(caps capability.Set, keywords *KeywordTable, cfg Config, log *logger.Logger) (Service, error) {
	if caps.Text == nil {
		return nil, fmt.Errorf("text embedder required")
	}
	if caps.Image == nil || caps.Captioner == nil {
		return nil, fmt.Errorf("image embedder and captioner required")
	}
	if keywords == nil {
		keywords = &KeywordTable{}
	}
	def := DefaultConfig()
	if cfg.CaptionInstruction == "" {
		cfg.CaptionInstruction = def.CaptionInstruction
	}
	if cfg.TranslatePrompt == "" {
		cfg.TranslatePrompt = def.TranslatePrompt
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = def.Categories
	}
	if cfg.SemanticTextLimit <= 0 {
		cfg.SemanticTextLimit = def.SemanticTextLimit
	}
	if cfg.DocumentTextLimit <= 0 {
		cfg.DocumentTextLimit = def.DocumentTextLimit
	}
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = def.PreviewLimit
	}
	if cfg.MaxImageSide <= 0 {
		cfg.MaxImageSide = def.MaxImageSide
	}
	return &service{
		log:        log.With("component", "AssetPipeline"),
		caps:       caps,
		keywords:   keywords,
		cfg:        cfg,
		extractPDF: extractPDFText,
	}, nil
}

func (s *service) Process(ctx context.Context, in Input, report Reporter) (*Output, error) {
	if report == nil {
		report = func(string, float64) {}
	}
	kind := Route(in.MimeType)

	ctx, span := tracer.Start(ctx, "pipeline."+string(kind))
	defer span.End()
	span.SetAttributes(
		attribute.String("asset.id", in.AssetID.String()),
		attribute.String("asset.mime_type", in.MimeType),
	)

	var (
		out *Output
		err error
	)
	switch kind {
	case KindImage:
		out, err = s.processImage(ctx, in, report)
	case KindDocument:
		out, err = s.processDocument(ctx, in, report)
	case KindText:
		out, err = s.processText(ctx, in, report)
	default:
		out = &Output{
			Kind:        KindUnsupported,
			Enrichment:  &assets.Enrichment{},
			Diagnostics: map[string]any{"pipeline": "none", "reason": "unsupported mime type"},
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out.Kind = kind
	return out, nil
}

func (s *service) checkDims(name string, vec []float32, want int) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%s: embedding has %d dimensions, want %d", name, len(vec), want)
	}
	return nil
}

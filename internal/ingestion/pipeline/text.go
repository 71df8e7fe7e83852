package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/thinkbank-worker/internal/domain/assets"
)

func (s *service) processText(ctx context.Context, in Input, report Reporter) (*Output, error) {
	raw, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	report(assets.StageProcessing, 0.4)

	out, err := s.textEnrichment(ctx, decodeUTF8(raw), report)
	if err != nil {
		return nil, err
	}
	out.Diagnostics["pipeline"] = string(KindText)
	return out, nil
}

// textEnrichment is shared by the document and text pipelines. Blank text
// completes without an embedding and drops any vector from an earlier run.
func (s *service) textEnrichment(ctx context.Context, text string, report Reporter) (*Output, error) {
	preview := truncateRunes(text, s.cfg.PreviewLimit)
	out := &Output{
		Diagnostics: map[string]any{"text_bytes": len(text)},
		Enrichment: &assets.Enrichment{
			Caption:     &preview,
			ContentText: &text,
		},
	}
	if isBlank(text) {
		out.Diagnostics["embedding"] = "skipped: empty text"
		out.Enrichment.DropEmbedding = true
		return out, nil
	}

	report(assets.StageEmbedding, 0.6)
	vec, err := Required(ctx, "embed_text", func(ctx context.Context) ([]float32, error) {
		return s.caps.Text.EmbedText(ctx, truncateRunes(text, s.cfg.DocumentTextLimit))
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkDims("embed_text", vec, s.cfg.SemanticDims); err != nil {
		return nil, err
	}
	out.Enrichment.SemanticVector = vec
	return out, nil
}

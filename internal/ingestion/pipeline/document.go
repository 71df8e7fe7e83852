package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/yungbote/thinkbank-worker/internal/domain/assets"
)

func (s *service) processDocument(ctx context.Context, in Input, report Reporter) (*Output, error) {
	text, err := Required(ctx, "extract_pdf", func(context.Context) (string, error) {
		return s.extractPDF(in.Path)
	})
	if err != nil {
		return nil, err
	}
	report(assets.StageProcessing, 0.4)

	out, err := s.textEnrichment(ctx, text, report)
	if err != nil {
		return nil, err
	}
	out.Enrichment.Category = CategoryDocument
	out.Diagnostics["pipeline"] = string(KindDocument)
	return out, nil
}

// extractPDFText concatenates the plain text of every page. The pdf package
// panics on some malformed inputs, which surfaces here as an error.
func extractPDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	return buf.String(), nil
}

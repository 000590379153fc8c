// Package textextract turns uploaded documents into plain text for the
// analysis pipeline.  PDFs get their text layer extracted; everything else
// is treated as UTF-8 text.
package textextract

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/patentlens/patentlens/internal/application/analysis"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

var pdfMagic = []byte("%PDF")

// Extractor implements the pipeline's text-extraction port.
type Extractor struct {
	logger logging.Logger
}

var _ analysis.TextExtractor = (*Extractor)(nil)

func NewExtractor(log logging.Logger) *Extractor {
	return &Extractor{logger: log}
}

// Extract returns the document's plain text.  The format is decided by the
// storage key's extension first and the leading bytes second, so a PDF
// uploaded without an extension still parses.
func (e *Extractor) Extract(ctx context.Context, storageKey string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDocumentExtract, "extraction canceled")
	}
	if isPDF(storageKey, data) {
		return e.extractPDF(storageKey, data)
	}
	return string(data), nil
}

func isPDF(storageKey string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(storageKey), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, pdfMagic)
}

func (e *Extractor) extractPDF(storageKey string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDocumentExtract, "parse pdf").
			WithDetail(storageKey)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDocumentExtract, "extract pdf text").
			WithDetail(storageKey)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDocumentExtract, "read pdf text").
			WithDetail(storageKey)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		// Scanned PDFs have no text layer.  The caller decides whether an
		// empty document is fatal.
		e.logger.Warn("pdf has no extractable text", logging.String("key", storageKey))
	}
	return text, nil
}

package textextract

import (
	"context"
	"testing"

	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

func TestExtractPlainTextPassthrough(t *testing.T) {
	e := NewExtractor(logging.NewNopLogger())
	out, err := e.Extract(context.Background(), "spec/abc.txt", []byte("A widget comprising a flange."))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out != "A widget comprising a flange." {
		t.Fatalf("out = %q", out)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	e := NewExtractor(logging.NewNopLogger())
	out, err := e.Extract(context.Background(), "spec/empty.txt", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out != "" {
		t.Fatalf("out = %q", out)
	}
}

func TestIsPDFDetection(t *testing.T) {
	cases := []struct {
		name string
		key  string
		data []byte
		want bool
	}{
		{"pdf extension", "refs/doc.pdf", []byte("whatever"), true},
		{"uppercase extension", "refs/DOC.PDF", []byte("whatever"), true},
		{"magic bytes without extension", "refs/doc", []byte("%PDF-1.7\n..."), true},
		{"plain text", "refs/doc.txt", []byte("just text"), false},
		{"magic mid-stream is not a pdf", "refs/doc.txt", []byte("see %PDF inside"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isPDF(tc.key, tc.data); got != tc.want {
				t.Fatalf("isPDF(%q) = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}

func TestExtractRejectsCorruptPDF(t *testing.T) {
	e := NewExtractor(logging.NewNopLogger())
	_, err := e.Extract(context.Background(), "refs/broken.pdf", []byte("%PDF-1.7 truncated garbage"))
	if !apperrors.IsCode(err, apperrors.ErrCodeDocumentExtract) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractHonorsCanceledContext(t *testing.T) {
	e := NewExtractor(logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Extract(ctx, "spec/abc.txt", []byte("text"))
	if !apperrors.IsCode(err, apperrors.ErrCodeDocumentExtract) {
		t.Fatalf("err = %v", err)
	}
}

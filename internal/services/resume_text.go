package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
)

// ResumeTextExtractor turns a stored resume reference into plain text.
type ResumeTextExtractor interface {
	ExtractText(ctx context.Context, ref string) (string, error)
}

type resumeTextExtractor struct {
	storage StorageService
	log     *zap.Logger
}

func NewResumeTextExtractor(storage StorageService, log *zap.Logger) ResumeTextExtractor {
	return &resumeTextExtractor{
		storage: storage,
		log:     logger.OrNop(log),
	}
}

// UnsupportedResumePlaceholder stands in for the text of formats that cannot be decoded.
func UnsupportedResumePlaceholder(ext string) string {
	return fmt.Sprintf("[resume in %s format could not be converted to text]", ext)
}

// ExtractText reads pdf, txt and md resumes. Other formats yield a placeholder
// rather than an error so scoring can still proceed.
func (e *resumeTextExtractor) ExtractText(ctx context.Context, ref string) (string, error) {
	ext := strings.ToLower(filepath.Ext(ref))
	if !AllowedResumeExtensions[ext] {
		e.log.Warn("resume format not extractable",
			zap.String("ref", ref),
			zap.Error(fmt.Errorf("%w: %s", ErrResumeFormatUnsupported, ext)),
		)
		return UnsupportedResumePlaceholder(ext), nil
	}

	rc, err := e.storage.Open(ctx, ref)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read resume %s: %w", ref, err)
	}

	if ext != ".pdf" {
		return CleanText(string(data)), nil
	}

	text, pages, err := extractPDFText(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse resume %s: %w", ref, err)
	}
	e.log.Debug("resume pdf extracted", zap.String("ref", ref), zap.Int("pages", pages), zap.Int("chars", len(text)))
	return text, nil
}

func extractPDFText(data []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := CleanText(textBuilder.String())
	if text == "" {
		return "", totalPage, fmt.Errorf("no text content found in PDF")
	}

	return text, totalPage, nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(normalizeNewlines(strings.TrimSpace(text)), "\n")
	cleaned := make([]string, 0, len(lines))

	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}

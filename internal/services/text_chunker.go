package services

import (
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize = 1000

	// maxResumePromptRunes bounds the resume excerpt sent to the scoring prompt.
	maxResumePromptRunes = 12000
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int) []string
	Excerpt(text string, maxRunes int) string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText packs paragraphs into chunks of at most maxChunkSize runes. A
// paragraph longer than that is split at sentence ends.
func (tc *textChunker) ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = defaultChunkSize
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	add := func(piece, sep string) {
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+utf8.RuneCountInString(piece)+len(sep) > maxChunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}

	for _, para := range strings.Split(normalizeNewlines(text), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= maxChunkSize {
			add(para, "\n\n")
			continue
		}
		for _, sentence := range splitIntoSentences(para) {
			add(truncateRunes(sentence, maxChunkSize), " ")
		}
	}
	flush()

	return chunks
}

// Excerpt returns the leading chunks of text that fit in maxRunes.
func (tc *textChunker) Excerpt(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return strings.TrimSpace(text)
	}

	var parts []string
	used := 0
	for _, chunk := range tc.ChunkText(text, defaultChunkSize) {
		n := utf8.RuneCountInString(chunk)
		if used+n > maxRunes {
			break
		}
		parts = append(parts, chunk)
		used += n + 2
	}
	return strings.Join(parts, "\n\n")
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// splitIntoSentences keeps the terminating punctuation on each sentence.
func splitIntoSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"alfredoptarigan/assessment-engine/internal/models"
)

const maxDerivedOptions = 4

// ParseOutcome tags what the decoder made of raw model output.
type ParseOutcome int

const (
	ParseParsed ParseOutcome = iota
	ParseMalformed
	ParseEmpty
)

func (o ParseOutcome) String() string {
	switch o {
	case ParseParsed:
		return "parsed"
	case ParseMalformed:
		return "malformed"
	case ParseEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// ParseResult is raw model output decoded into loosely typed items, before validation.
type ParseResult struct {
	Outcome ParseOutcome
	Items   []map[string]any
}

// decodeStrategy tries to turn raw text into question items.
type decodeStrategy func(text string) ([]map[string]any, error)

var errNoJSONArray = errors.New("no JSON array found")

// questionDecoders run in order; the first success wins.
var questionDecoders = []decodeStrategy{
	decodeBracketArray,
	decodeFullText,
	decodeEmbeddedObject,
}

func firstSuccess(text string, strategies []decodeStrategy) ([]map[string]any, error) {
	var errs []error
	for _, strategy := range strategies {
		items, err := strategy(text)
		if err == nil {
			return items, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// DecodeQuestionPayload tags raw model output as parsed, malformed or empty.
func DecodeQuestionPayload(raw string) ParseResult {
	if strings.TrimSpace(stripCodeFences(raw)) == "" {
		return ParseResult{Outcome: ParseEmpty}
	}

	items, err := firstSuccess(raw, questionDecoders)
	if err != nil {
		return ParseResult{Outcome: ParseMalformed}
	}
	if len(items) == 0 {
		return ParseResult{Outcome: ParseEmpty}
	}
	return ParseResult{Outcome: ParseParsed, Items: items}
}

// ParseQuestions decodes, normalizes and validates model output into exactly
// QuestionsPerTest questions.
func ParseQuestions(raw string) ([]models.GeneratedQuestion, error) {
	result := DecodeQuestionPayload(raw)
	switch result.Outcome {
	case ParseEmpty:
		return nil, fmt.Errorf("%w: empty response", ErrGenerationMalformedOutput)
	case ParseMalformed:
		return nil, fmt.Errorf("%w: no decodable question payload", ErrGenerationMalformedOutput)
	}

	questions := make([]models.GeneratedQuestion, 0, len(result.Items))
	for _, item := range result.Items {
		q, ok := normalizeQuestion(item)
		if !ok {
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) < models.QuestionsPerTest {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientValidQuestions, len(questions), models.QuestionsPerTest)
	}
	return questions[:models.QuestionsPerTest], nil
}

func decodeBracketArray(text string) ([]map[string]any, error) {
	text = stripCodeFences(text)
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end <= start {
		return nil, errNoJSONArray
	}

	var arr []any
	if err := json.Unmarshal([]byte(text[start:end+1]), &arr); err != nil {
		return nil, fmt.Errorf("bracket array: %w", err)
	}
	// An options list inside a single object is not a question array.
	items := objectsOf(arr)
	if len(items) == 0 {
		return nil, errNoJSONArray
	}
	return items, nil
}

func decodeFullText(text string) ([]map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &v); err != nil {
		return nil, fmt.Errorf("full text: %w", err)
	}
	return itemsOf(v)
}

func decodeEmbeddedObject(text string) ([]map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &obj); err != nil {
		return nil, fmt.Errorf("embedded object: %w", err)
	}
	return itemsOf(obj)
}

// itemsOf accepts an array, a wrapper object holding an array, or a single question object.
func itemsOf(v any) ([]map[string]any, error) {
	switch val := v.(type) {
	case []any:
		return objectsOf(val), nil
	case map[string]any:
		if wrapped, ok := firstPresent(val, "questions", "items", "data"); ok {
			if arr, ok := wrapped.([]any); ok {
				return objectsOf(arr), nil
			}
		}
		return []map[string]any{val}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value %T", v)
	}
}

func objectsOf(arr []any) []map[string]any {
	items := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

func normalizeQuestion(item map[string]any) (models.GeneratedQuestion, bool) {
	var q models.GeneratedQuestion

	if v, ok := firstPresent(item, "question", "questionText", "question_text", "text", "prompt"); ok {
		q.QuestionText = collapseWhitespace(coerceString(v))
	}
	if v, ok := firstPresent(item, "options", "choices"); ok {
		q.Options = cleanOptions(v)
	}
	if len(q.Options) < models.MinOptions {
		if stem, derived := deriveOptions(q.QuestionText); len(derived) >= models.MinOptions {
			q.Options = derived
			if len([]rune(stem)) >= models.MinQuestionTextLength {
				q.QuestionText = stem
			}
		}
	}

	kind, _ := firstPresent(item, "type", "kind", "question_type", "questionType")
	q.Kind = normalizeKind(coerceString(kind))

	if v, ok := firstPresent(item, "correct_answer", "correctAnswer", "answer", "correct", "correct_option"); ok {
		q.CorrectAnswer = collapseWhitespace(coerceString(v))
	}
	if v, ok := firstPresent(item, "explanation", "rationale", "reason"); ok {
		q.Explanation = collapseWhitespace(coerceString(v))
	}

	if !q.Valid() {
		return q, false
	}
	q.CorrectAnswer = resolveCorrectAnswer(q.CorrectAnswer, q.Options)
	return q, true
}

func cleanOptions(v any) []string {
	var raw []string
	switch val := v.(type) {
	case map[string]any:
		// {"A": "...", "B": "..."}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			raw = append(raw, coerceString(val[k]))
		}
	default:
		raw = coerceStringSlice(v)
	}

	options := make([]string, 0, len(raw))
	for _, opt := range raw {
		opt = truncateRunes(collapseWhitespace(opt), models.MaxOptionLength)
		if opt == "" {
			continue
		}
		options = append(options, opt)
		if len(options) == models.MaxOptions {
			break
		}
	}
	return options
}

var (
	letteredMarker = regexp.MustCompile(`(?:^|\s)([A-Fa-f])\)\s*`)
	numberedMarker = regexp.MustCompile(`(?:^|\s)([1-9])\.\s+`)
)

// deriveOptions recovers options embedded in the question text as "A) ... B) ..."
// or "1. ... 2. ...". It returns the text before the first marker and the options.
func deriveOptions(text string) (string, []string) {
	for _, marker := range []struct {
		re    *regexp.Regexp
		first byte
	}{
		{letteredMarker, 'A'},
		{numberedMarker, '1'},
	} {
		stem, options := splitOnMarkers(text, marker.re, marker.first)
		if len(options) >= models.MinOptions {
			return stem, options
		}
	}
	return text, nil
}

func splitOnMarkers(text string, re *regexp.Regexp, first byte) (string, []string) {
	matches := re.FindAllStringSubmatchIndex(text, -1)

	// Keep only markers that continue the sequence A, B, C or 1, 2, 3.
	var seq [][]int
	expected := first
	for _, m := range matches {
		label := text[m[2]:m[3]]
		if unicode.ToUpper(rune(label[0])) != rune(expected) {
			continue
		}
		seq = append(seq, m)
		expected++
	}
	if len(seq) < models.MinOptions {
		return text, nil
	}

	stem := strings.TrimSpace(text[:seq[0][0]])
	options := make([]string, 0, maxDerivedOptions)
	for i, m := range seq {
		end := len(text)
		if i+1 < len(seq) {
			end = seq[i+1][0]
		}
		opt := truncateRunes(collapseWhitespace(text[m[1]:end]), models.MaxOptionLength)
		if opt != "" {
			options = append(options, opt)
		}
		if len(options) == maxDerivedOptions {
			break
		}
	}
	return stem, options
}

func normalizeKind(raw string) models.QuestionKind {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "coding", "code", "programming":
		return models.KindCoding
	case "short_answer", "short", "open", "open_ended", "text":
		return models.KindShortAnswer
	default:
		return models.KindMultipleChoice
	}
}

// resolveCorrectAnswer points the stated answer at one of the options: exact
// match, then case-insensitive containment either way. An answer matching no
// option by text may still be an option letter; otherwise the first option wins.
func resolveCorrectAnswer(answer string, options []string) string {
	for _, opt := range options {
		if opt == answer {
			return opt
		}
	}

	lowerAnswer := strings.ToLower(answer)
	for _, opt := range options {
		lowerOpt := strings.ToLower(opt)
		if strings.Contains(lowerOpt, lowerAnswer) || strings.Contains(lowerAnswer, lowerOpt) {
			return opt
		}
	}

	if idx, ok := optionLetterIndex(answer); ok && idx < len(options) {
		return options[idx]
	}
	return options[0]
}

// optionLetterIndex reads answers like "B", "b)" or "C." as an option index.
func optionLetterIndex(answer string) (int, bool) {
	a := strings.TrimRight(strings.TrimSpace(answer), ").:")
	if len(a) != 1 {
		return 0, false
	}
	r := unicode.ToUpper(rune(a[0]))
	if r < 'A' || r > 'F' {
		return 0, false
	}
	return int(r - 'A'), true
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

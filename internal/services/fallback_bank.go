package services

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/assessment-engine/internal/models"
)

//go:embed bank/bank.yaml
var bankYAML []byte

const generalTopic = "general"

type bankQuestion struct {
	Question      string   `yaml:"question"`
	Options       []string `yaml:"options"`
	CorrectAnswer string   `yaml:"correct_answer"`
	Explanation   string   `yaml:"explanation"`
}

type bankPool struct {
	Topic     string         `yaml:"topic"`
	Keywords  []string       `yaml:"keywords"`
	Questions []bankQuestion `yaml:"questions"`
}

type bankFile struct {
	Pools []bankPool `yaml:"pools"`
}

// FallbackBank selects questions deterministically without the generation service.
type FallbackBank interface {
	Select(job models.JobRequirement, attempt int) []models.GeneratedQuestion
	Topics(job models.JobRequirement) []string
}

type fallbackBank struct {
	general bankPool
	skills  []bankPool
}

// NewFallbackBank loads the embedded question bank.
func NewFallbackBank() (FallbackBank, error) {
	return loadFallbackBank(bankYAML)
}

// MustFallbackBank is NewFallbackBank for wiring code; the embedded bank is
// validated by tests, so a failure here is a build defect.
func MustFallbackBank() FallbackBank {
	bank, err := NewFallbackBank()
	if err != nil {
		panic(err)
	}
	return bank
}

func loadFallbackBank(data []byte) (*fallbackBank, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	bank := &fallbackBank{}
	for _, pool := range file.Pools {
		for i, q := range pool.Questions {
			if err := validateBankQuestion(q); err != nil {
				return nil, fmt.Errorf("pool %s question %d: %w", pool.Topic, i, err)
			}
		}
		if pool.Topic == generalTopic {
			bank.general = pool
			continue
		}
		bank.skills = append(bank.skills, pool)
	}

	if len(bank.general.Questions) < models.QuestionsPerTest {
		return nil, fmt.Errorf("general pool needs at least %d questions, has %d",
			models.QuestionsPerTest, len(bank.general.Questions))
	}
	return bank, nil
}

func validateBankQuestion(q bankQuestion) error {
	gq := q.toQuestion()
	if !gq.Valid() {
		return fmt.Errorf("question %q is not valid", q.Question)
	}
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return nil
		}
	}
	return fmt.Errorf("correct answer %q is not an option", q.CorrectAnswer)
}

func (q bankQuestion) toQuestion() models.GeneratedQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return models.GeneratedQuestion{
		QuestionText:  q.Question,
		Kind:          models.KindMultipleChoice,
		Options:       options,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
}

// Topics lists the pools drawn from for job: general first, then every skill
// pool whose keyword appears in the required skills.
func (b *fallbackBank) Topics(job models.JobRequirement) []string {
	topics := []string{b.general.Topic}
	for _, pool := range b.matchingPools(job) {
		topics = append(topics, pool.Topic)
	}
	return topics
}

func (b *fallbackBank) matchingPools(job models.JobRequirement) []bankPool {
	matched := make(map[string]struct{})
	for _, skill := range job.RequiredSkills {
		for _, token := range skillTokens(skill) {
			if topic := b.bestTopic(token); topic != "" {
				matched[topic] = struct{}{}
			}
		}
	}

	var pools []bankPool
	for _, pool := range b.skills {
		if _, ok := matched[pool.Topic]; ok {
			pools = append(pools, pool)
		}
	}
	return pools
}

// minSubstringKeyword is the shortest keyword matched inside a longer token.
// Shorter ones ("go", "js", "ts") only match a whole token, so "Django" and
// "MongoDB" stay out of the go pool.
const minSubstringKeyword = 4

// bestTopic returns the pool of the longest keyword found in token, or "".
// The longest keyword wins, so "javascript" picks the javascript pool even
// though it contains "java".
func (b *fallbackBank) bestTopic(token string) string {
	bare := strings.TrimRightFunc(token, unicode.IsDigit)
	best, bestLen := "", 0
	for _, pool := range b.skills {
		for _, kw := range pool.Keywords {
			kw = strings.ToLower(kw)
			hit := kw == token || kw == bare ||
				(len(kw) >= minSubstringKeyword && strings.Contains(token, kw))
			if hit && len(kw) > bestLen {
				best, bestLen = pool.Topic, len(kw)
			}
		}
	}
	return best
}

// skillTokens splits "Node.js" into [node js].
func skillTokens(skill string) []string {
	return strings.FieldsFunc(strings.ToLower(skill), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

// Select returns exactly QuestionsPerTest questions. The same job and attempt
// always yield the same questions in the same order with the same option layout.
func (b *fallbackBank) Select(job models.JobRequirement, attempt int) []models.GeneratedQuestion {
	pool := append([]bankQuestion(nil), b.general.Questions...)
	for _, skillPool := range b.matchingPools(job) {
		pool = append(pool, skillPool.Questions...)
	}

	seed := fallbackSeed(job, attempt)
	start := seed % len(pool)

	questions := make([]models.GeneratedQuestion, 0, models.QuestionsPerTest)
	for i := 0; i < models.QuestionsPerTest; i++ {
		q := pool[(start+i)%len(pool)].toQuestion()
		shuffleOptions(&q, seed+i)
		questions = append(questions, q)
	}
	return questions
}

func fallbackSeed(job models.JobRequirement, attempt int) int {
	seed := attempt + len([]rune(job.Title))*7
	if seed < 0 {
		seed = -seed
	}
	return seed
}

// shuffleOptions swaps one adjacent pair of options when salt is odd, then
// re-points CorrectAnswer at the option holding the original correct value.
func shuffleOptions(q *models.GeneratedQuestion, salt int) {
	if salt%2 == 0 || len(q.Options) < 2 {
		return
	}

	correct := q.Options[indexOf(q.Options, q.CorrectAnswer)]
	j := salt % (len(q.Options) - 1)
	q.Options[j], q.Options[j+1] = q.Options[j+1], q.Options[j]
	q.CorrectAnswer = q.Options[indexOf(q.Options, correct)]
}

func indexOf(options []string, value string) int {
	for i, opt := range options {
		if opt == value {
			return i
		}
	}
	return 0
}

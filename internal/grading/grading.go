// Package grading evaluates free-form study answers with an LLM and
// normalizes the response into a structured result. The model output is
// untrusted: parsing degrades through three tiers before giving up, so a
// chatty or malformed completion still yields a usable score.
package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rohan/flashdeck/internal/llm"
	"github.com/rohan/flashdeck/internal/logger"
)

// Level buckets a numeric score for display.
type Level string

const (
	LevelPerfect   Level = "perfect"
	LevelGood      Level = "good"
	LevelPartial   Level = "partial"
	LevelIncorrect Level = "incorrect"
)

// correctThreshold is the minimum score counted as a correct answer.
const correctThreshold = 70

// Result is a graded answer.
type Result struct {
	Score            int      `json:"score"`
	IsCorrect        bool     `json:"isCorrect"`
	Level            Level    `json:"level"`
	Feedback         string   `json:"feedback"`
	SpecificFeedback []string `json:"specificFeedback,omitempty"`
}

// LevelForScore maps a score to a level using the grading rubric the
// model is prompted with.
func LevelForScore(score int) Level {
	switch {
	case score >= 91:
		return LevelPerfect
	case score >= 61:
		return LevelGood
	case score >= 31:
		return LevelPartial
	default:
		return LevelIncorrect
	}
}

// fallbackLevelForScore maps a score to a level when the structured
// response could not be parsed and the score was scraped from raw text.
// The bands are coarser because the score itself is lower-confidence.
func fallbackLevelForScore(score int) Level {
	switch {
	case score >= 90:
		return LevelPerfect
	case score >= 70:
		return LevelGood
	case score >= 40:
		return LevelPartial
	default:
		return LevelIncorrect
	}
}

// Grader grades answers against flashcard contents.
type Grader struct {
	provider llm.Provider
	log      *logger.Logger
}

func New(provider llm.Provider, log *logger.Logger) *Grader {
	if log == nil {
		log = logger.Nop()
	}
	return &Grader{provider: provider, log: log}
}

const gradingSystemPrompt = `You are grading a student's answer to a flashcard question.
Compare the student's answer with the expected answer and score it from 0 to 100:
- 91-100: complete and accurate (perfect)
- 61-90: mostly correct with minor gaps (good)
- 31-60: partially correct (partial)
- 0-30: incorrect or unrelated (incorrect)
Be lenient about wording: grade meaning, not phrasing.
Respond with JSON only, no prose around it.`

var gradingSchema = &llm.Schema{
	Name:        "answer_grade",
	Description: "Structured grade for a flashcard answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": 100,
			},
			"feedback": map[string]any{
				"type": "string",
			},
			"specificFeedback": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"score", "feedback"},
		"additionalProperties": false,
	},
}

// Grade asks the model to evaluate userAnswer against the card's expected
// answer. It never fails on malformed model output; only transport-level
// errors are returned.
func (g *Grader) Grade(ctx context.Context, question, expectedAnswer, userAnswer string) (Result, error) {
	prompt := fmt.Sprintf(
		"Question: %s\n\nExpected answer: %s\n\nStudent's answer: %s\n\n"+
			`Respond with JSON: {"score": <0-100>, "feedback": "<one or two sentences>", `+
			`"specificFeedback": ["+ <what was right>", "- <what was missing>", "> <suggestion>"]}`,
		question, expectedAnswer, userAnswer,
	)

	ctx = llm.WithPurpose(ctx, llm.PurposeGrading)
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      gradingSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:      gradingSchema,
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		// Schema violations still carry the raw content; recover it
		// through the fallback parse instead of failing the grade.
		var invalid *llm.ErrInvalidResponse
		if errors.As(err, &invalid) {
			result, tier := ParseResult(string(invalid.Content))
			g.log.Warn("grading response failed schema validation, parsed defensively",
				"tier", tier.String(),
			)
			return result, nil
		}
		return Result{}, fmt.Errorf("grading answer: %w", err)
	}

	result, tier := ParseResult(string(resp.Content))
	if tier != tierJSON {
		g.log.Warn("grading response required fallback parsing",
			"tier", tier.String(),
			"model", resp.Model,
		)
	}
	return result, nil
}

type parseTier int

const (
	tierJSON parseTier = iota
	tierExtracted
	tierScraped
)

func (t parseTier) String() string {
	switch t {
	case tierJSON:
		return "json"
	case tierExtracted:
		return "extracted"
	default:
		return "scraped"
	}
}

// scoreRE matches a "score: N" fragment in otherwise unstructured text.
var scoreRE = regexp.MustCompile(`(?i)score:?\s*(\d+)`)

// ParseResult recovers a Result from raw model output. It tries, in
// order: the whole content as JSON, the first balanced JSON object
// embedded in the content, and finally scraping a "score: N" fragment
// with a default of 50 when nothing matches.
func ParseResult(content string) (Result, parseTier) {
	if r, ok := parseJSON(content); ok {
		return r, tierJSON
	}
	if obj := firstJSONObject(content); obj != "" {
		if r, ok := parseJSON(obj); ok {
			return r, tierExtracted
		}
	}
	return scrapeResult(content), tierScraped
}

func parseJSON(s string) (Result, bool) {
	var raw struct {
		Score            *int     `json:"score"`
		Feedback         string   `json:"feedback"`
		SpecificFeedback []string `json:"specificFeedback"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &raw); err != nil || raw.Score == nil {
		return Result{}, false
	}
	score := clampScore(*raw.Score)
	return Result{
		Score:            score,
		IsCorrect:        score >= correctThreshold,
		Level:            LevelForScore(score),
		Feedback:         raw.Feedback,
		SpecificFeedback: raw.SpecificFeedback,
	}, true
}

// firstJSONObject returns the first balanced {...} region of s, or "".
// Braces inside JSON strings are skipped.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func scrapeResult(content string) Result {
	score := 50
	if m := scoreRE.FindStringSubmatch(content); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			score = clampScore(n)
		}
	}
	return Result{
		Score:     score,
		IsCorrect: score >= correctThreshold,
		Level:     fallbackLevelForScore(score),
		Feedback:  strings.TrimSpace(content),
		SpecificFeedback: []string{
			"+ Your answer was received and scored",
			"- Detailed feedback could not be generated for this answer",
			"> Compare your answer with the card and try again",
		},
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// Accumulator tracks a running average of scores across a study session.
type Accumulator struct {
	total int
	count int
}

func (a *Accumulator) Add(score int) {
	a.total += score
	a.count++
}

func (a *Accumulator) Count() int { return a.count }

// Average returns the rounded mean of accumulated scores, or 0 when
// nothing has been added.
func (a *Accumulator) Average() int {
	if a.count == 0 {
		return 0
	}
	return int(math.Round(float64(a.total) / float64(a.count)))
}

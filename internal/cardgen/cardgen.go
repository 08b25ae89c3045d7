// Package cardgen turns raw study material into flashcards using an LLM.
// Generation never hard-fails on model output: if the completion cannot be
// parsed as a card list, a deterministic sentence-based fallback produces
// cards directly from the source text so set creation always succeeds.
package cardgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rohan/flashdeck/internal/llm"
	"github.com/rohan/flashdeck/internal/logger"
)

// Card is one generated question/answer pair.
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

const (
	MinCards = 1
	MaxCards = 50

	// DefaultCount is used when the caller does not specify a count.
	DefaultCount = 10
)

// Generator produces flashcards from text or an image.
type Generator struct {
	provider llm.Provider
	log      *logger.Logger
}

func New(provider llm.Provider, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{provider: provider, log: log}
}

const cardgenSystemPrompt = `You create study flashcards from source material.
Each card has a short question and a concise, self-contained answer.
Cover the most important facts and concepts in the material.
Respond with a JSON array only, no prose around it.`

var cardSchema = &llm.Schema{
	Name:        "flashcards",
	Description: "Generated flashcards",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string"},
				"answer":   map[string]any{"type": "string"},
			},
			"required":             []any{"question", "answer"},
			"additionalProperties": false,
		},
	},
}

// Generate produces up to count cards from content and/or an image.
// count is clamped to [MinCards, MaxCards]; zero means DefaultCount.
// At least one of content and image must be non-empty.
func (g *Generator) Generate(ctx context.Context, content string, image []byte, imageMIME string, count int) ([]Card, error) {
	if strings.TrimSpace(content) == "" && len(image) == 0 {
		return nil, fmt.Errorf("card generation requires text content or an image")
	}
	count = clampCount(count)

	prompt := fmt.Sprintf(
		"Create exactly %d flashcards from the following material.\n"+
			`Respond with a JSON array: [{"question": "...", "answer": "..."}]`+"\n\n%s",
		count, content,
	)
	if len(image) > 0 && strings.TrimSpace(content) == "" {
		prompt = fmt.Sprintf(
			"Create exactly %d flashcards from the attached image.\n"+
				`Respond with a JSON array: [{"question": "...", "answer": "..."}]`,
			count,
		)
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeCardGen)
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      cardgenSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Image:       image,
		ImageMIME:   imageMIME,
		Schema:      cardSchema,
		MaxTokens:   4096,
		Temperature: 0.4,
	})
	var raw string
	if err != nil {
		// Schema violations still carry the raw content; try to salvage
		// cards from it before giving up on the model entirely.
		var invalid *llm.ErrInvalidResponse
		if !errors.As(err, &invalid) {
			return nil, fmt.Errorf("generating cards: %w", err)
		}
		raw = string(invalid.Content)
	} else {
		raw = string(resp.Content)
	}

	cards := parseCards(raw)
	if len(cards) == 0 {
		g.log.Warn("card generation fell back to sentence extraction",
			"model", g.provider.ModelID(),
		)
		cards = FallbackCards(content, count)
	}
	if len(cards) > count {
		cards = cards[:count]
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("no cards could be generated from the material")
	}
	return cards, nil
}

func clampCount(n int) int {
	if n == 0 {
		return DefaultCount
	}
	if n < MinCards {
		return MinCards
	}
	if n > MaxCards {
		return MaxCards
	}
	return n
}

// parseCards extracts a card list from raw model output. It accepts the
// whole content as a JSON array or the first [...] region embedded in it.
func parseCards(content string) []Card {
	if cards := unmarshalCards(content); cards != nil {
		return cards
	}
	if arr := firstJSONArray(content); arr != "" {
		return unmarshalCards(arr)
	}
	return nil
}

func unmarshalCards(s string) []Card {
	var cards []Card
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &cards); err != nil {
		return nil
	}
	out := cards[:0]
	for _, c := range cards {
		if strings.TrimSpace(c.Question) != "" && strings.TrimSpace(c.Answer) != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// firstJSONArray returns the first balanced [...] region of s, or "".
func firstJSONArray(s string) string {
	start := strings.IndexByte(s, '[')
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// FallbackCards builds cards directly from the source text when the model
// output is unusable. Each substantial sentence becomes one card with the
// sentence as the answer.
func FallbackCards(content string, count int) []Card {
	sentences := splitSentences(content)
	cards := make([]Card, 0, count)
	for _, s := range sentences {
		if len(cards) == count {
			break
		}
		cards = append(cards, Card{
			Question: "What do you remember about: " + truncate(s, 60) + "?",
			Answer:   s,
		})
	}
	return cards
}

// splitSentences breaks text on sentence terminators, keeping only
// fragments long enough to carry a fact.
func splitSentences(content string) []string {
	const minLen = 20
	var out []string
	var b strings.Builder
	for _, r := range content {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(strings.TrimRight(b.String(), ".!?\n")); len(s) >= minLen {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); len(s) >= minLen {
		out = append(out, s)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}

// Package study implements the per-visit study session: a state machine
// over a fixed deck of cards that tracks correctness, recirculates
// incorrect cards, accumulates AI grades, and reports the finished
// session as a study outcome.
package study

import (
	"errors"

	"github.com/google/uuid"

	"github.com/rohan/flashdeck/internal/grading"
)

// Card is one question/answer pair in a session deck.
type Card struct {
	ID       uuid.UUID
	Question string
	Answer   string
}

// State is the lifecycle phase of a session.
type State int

const (
	// StateActive means cards remain to be studied.
	StateActive State = iota
	// StateFinished means every card was resolved or the user moved past
	// the last remaining card.
	StateFinished
	// StateSummarized means the session finished with at least one graded
	// answer and the aggregate score view is showing.
	StateSummarized
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	case StateSummarized:
		return "summarized"
	default:
		return "unknown"
	}
}

var ErrEmptyDeck = errors.New("study session requires a non-empty deck")

// Session is a single study visit over one deck. It is not safe for
// concurrent use; all transitions happen on one request flow.
type Session struct {
	deck      []Card
	remaining []Card
	current   int
	flipped   bool
	correct   map[uuid.UUID]struct{}

	answer    string
	lastGrade *grading.Result

	scores     grading.Accumulator
	cumulative []int
	levels     map[grading.Level]int

	state State

	// generation increments whenever the session moves off the current
	// card. A grade computed for an earlier generation is stale and
	// discarded on apply.
	generation uint64
}

// NewSession starts a session over deck in its original order.
func NewSession(deck []Card) (*Session, error) {
	if len(deck) == 0 {
		return nil, ErrEmptyDeck
	}
	s := &Session{deck: deck}
	s.start()
	return s, nil
}

func (s *Session) start() {
	s.remaining = make([]Card, len(s.deck))
	copy(s.remaining, s.deck)
	s.current = 0
	s.flipped = false
	s.correct = make(map[uuid.UUID]struct{})
	s.answer = ""
	s.lastGrade = nil
	s.scores = grading.Accumulator{}
	s.cumulative = nil
	s.levels = make(map[grading.Level]int)
	s.state = StateActive
	s.generation++
}

// State returns the session's lifecycle phase.
func (s *Session) State() State { return s.state }

// Current returns the card being studied. ok is false once the session
// has finished.
func (s *Session) Current() (Card, bool) {
	if s.state != StateActive || len(s.remaining) == 0 {
		return Card{}, false
	}
	return s.remaining[s.current], true
}

// Flipped reports whether the answer side is showing.
func (s *Session) Flipped() bool { return s.flipped }

// Remaining returns how many cards are still unresolved.
func (s *Session) Remaining() int { return len(s.remaining) }

// CorrectCount returns how many distinct cards were marked correct.
func (s *Session) CorrectCount() int { return len(s.correct) }

// Flip toggles between question and answer side. Flipping back to the
// question side discards the typed answer and any grade for it.
func (s *Session) Flip() {
	if s.state != StateActive {
		return
	}
	if s.flipped {
		s.answer = ""
		s.lastGrade = nil
	}
	s.flipped = !s.flipped
}

// SetAnswer records the user's typed answer for the current card.
func (s *Session) SetAnswer(answer string) {
	if s.state != StateActive {
		return
	}
	s.answer = answer
}

// Answer returns the typed answer for the current card.
func (s *Session) Answer() string { return s.answer }

// LastGrade returns the grade applied to the current card, if any.
func (s *Session) LastGrade() *grading.Result { return s.lastGrade }

// MarkCorrect resolves the current card. The card leaves the rotation;
// when it was the last one the session finishes, otherwise the index
// wraps back into range.
func (s *Session) MarkCorrect() {
	if s.state != StateActive {
		return
	}
	card := s.remaining[s.current]
	s.correct[card.ID] = struct{}{}
	s.remaining = append(s.remaining[:s.current], s.remaining[s.current+1:]...)

	if len(s.remaining) == 0 {
		s.finish()
		return
	}
	if s.current >= len(s.remaining) {
		s.current = 0
	}
	s.moveOff()
}

// MarkIncorrect keeps the current card in rotation and advances, so it
// comes around again.
func (s *Session) MarkIncorrect() {
	s.Next()
}

// Next advances to the following card, wrapping circularly. Moving past
// the last card when exactly one remains finishes the session.
func (s *Session) Next() {
	if s.state != StateActive {
		return
	}
	if len(s.remaining) == 1 {
		s.finish()
		return
	}
	s.current = (s.current + 1) % len(s.remaining)
	s.moveOff()
}

// Previous retreats to the prior card, wrapping circularly.
func (s *Session) Previous() {
	if s.state != StateActive {
		return
	}
	s.current = (s.current - 1 + len(s.remaining)) % len(s.remaining)
	s.moveOff()
}

// Reset returns the session to its initial state over the full deck.
func (s *Session) Reset() {
	s.start()
}

// moveOff clears per-card state after leaving a card.
func (s *Session) moveOff() {
	s.flipped = false
	s.answer = ""
	s.lastGrade = nil
	s.generation++
}

func (s *Session) finish() {
	s.remaining = s.remaining[:0]
	s.state = StateFinished
	s.generation++
}

// Generation returns the token a grading request must carry to be
// applied. It changes whenever the session moves off the current card.
func (s *Session) Generation() uint64 { return s.generation }

// ApplyGrade folds a grading result into the session. gen must be the
// Generation value sampled when the request was issued; a stale token
// means the user already moved on and the result is dropped. Returns
// whether the grade was applied.
func (s *Session) ApplyGrade(gen uint64, result grading.Result) bool {
	if s.state != StateActive || gen != s.generation {
		return false
	}
	s.lastGrade = &result
	s.cumulative = append(s.cumulative, result.Score)
	s.scores.Add(result.Score)
	s.levels[result.Level]++
	return true
}

// Exit moves a finished session to its terminal phase. When at least one
// answer was AI-graded the session shows a summary first; otherwise it
// finalizes immediately. Returns the resulting state.
func (s *Session) Exit() State {
	if s.state != StateFinished {
		return s.state
	}
	if len(s.cumulative) > 0 {
		s.state = StateSummarized
	}
	return s.state
}

// Summary aggregates the session for the score screen and finalize.
type Summary struct {
	CardsStudied  int
	CorrectCards  int
	GradedAnswers int
	AverageScore  int
	ManualScore   int
	FinalScore    int

	PerfectAnswers   int
	GoodAnswers      int
	PartialAnswers   int
	IncorrectAnswers int
}

// Summarize reports the session's aggregates. The final score prefers
// the AI average when any answers were graded, falling back to the
// percentage of cards marked correct.
func (s *Session) Summarize() Summary {
	manual := 0
	if len(s.deck) > 0 {
		manual = int(float64(len(s.correct))/float64(len(s.deck))*100 + 0.5)
	}
	final := manual
	if s.scores.Count() > 0 {
		final = s.scores.Average()
	}
	return Summary{
		CardsStudied:     len(s.deck),
		CorrectCards:     len(s.correct),
		GradedAnswers:    s.scores.Count(),
		AverageScore:     s.scores.Average(),
		ManualScore:      manual,
		FinalScore:       final,
		PerfectAnswers:   s.levels[grading.LevelPerfect],
		GoodAnswers:      s.levels[grading.LevelGood],
		PartialAnswers:   s.levels[grading.LevelPartial],
		IncorrectAnswers: s.levels[grading.LevelIncorrect],
	}
}

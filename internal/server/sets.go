package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rohan/flashdeck/internal/cardgen"
	"github.com/rohan/flashdeck/internal/store"
)

type setResponse struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	CreatedAt   string         `json:"createdAt"`
	CardCount   int            `json:"cardCount"`
	Cards       []cardResponse `json:"cards,omitempty"`
}

type cardResponse struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
}

func toSetResponse(set *store.FlashcardSet, includeCards bool) setResponse {
	resp := setResponse{
		ID:          set.ID,
		Title:       set.Title,
		Description: set.Description,
		CreatedAt:   set.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		CardCount:   len(set.Cards),
	}
	if includeCards {
		resp.Cards = make([]cardResponse, 0, len(set.Cards))
		for _, c := range set.Cards {
			resp.Cards = append(resp.Cards, cardResponse{ID: c.ID, Question: c.Question, Answer: c.Answer})
		}
	}
	return resp
}

// POST /api/v1/sets
// Generates cards from the submitted material and stores the new set.
// Validation failures are rejected before any model or database call.
func (s *Server) createSet(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		Image       string `json:"image"` // base64
		ImageMIME   string `json:"imageMime"`
		CardCount   int    `json:"cardCount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	var image []byte
	if req.Image != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image must be base64-encoded"})
			return
		}
		image = decoded
	}
	if strings.TrimSpace(req.Content) == "" && len(image) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content or image is required"})
		return
	}
	if req.CardCount != 0 && (req.CardCount < cardgen.MinCards || req.CardCount > cardgen.MaxCards) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cardCount must be between 1 and 50"})
		return
	}

	userID := currentUser(c)
	ctx := c.Request.Context()

	cards, err := s.generator.Generate(ctx, req.Content, image, req.ImageMIME, req.CardCount)
	if err != nil {
		s.log.Error("card generation failed", "user_id", userID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "card generation failed, please try again"})
		return
	}

	set := &store.FlashcardSet{
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
	}
	rows := make([]store.Flashcard, 0, len(cards))
	for _, card := range cards {
		rows = append(rows, store.Flashcard{Question: card.Question, Answer: card.Answer})
	}
	if err := s.sets.CreateWithCards(ctx, set, rows); err != nil {
		s.log.Error("set insert failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save the set"})
		return
	}

	// Contribution tracking is best-effort; the set is already saved.
	if err := s.recorder.RecordSetCreated(ctx, userID, set.ID, len(rows), set.Title); err != nil {
		s.log.Warn("set_created contribution not recorded", "user_id", userID, "error", err)
	}

	c.JSON(http.StatusCreated, toSetResponse(set, true))
}

// GET /api/v1/sets
func (s *Server) listSets(c *gin.Context) {
	sets, err := s.sets.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.log.Error("set list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load sets"})
		return
	}
	out := make([]setResponse, 0, len(sets))
	for i := range sets {
		out = append(out, toSetResponse(&sets[i], false))
	}
	c.JSON(http.StatusOK, gin.H{"sets": out})
}

// GET /api/v1/sets/:id
func (s *Server) getSet(c *gin.Context) {
	setID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid set id"})
		return
	}
	set, err := s.sets.Get(c.Request.Context(), currentUser(c), setID)
	if errors.Is(err, store.ErrSetNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "set not found"})
		return
	}
	if err != nil {
		s.log.Error("set query failed", "set_id", setID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load the set"})
		return
	}
	c.JSON(http.StatusOK, toSetResponse(set, true))
}

// DELETE /api/v1/sets/:id
func (s *Server) deleteSet(c *gin.Context) {
	setID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid set id"})
		return
	}
	err = s.sets.Delete(c.Request.Context(), currentUser(c), setID)
	if errors.Is(err, store.ErrSetNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "set not found"})
		return
	}
	if err != nil {
		s.log.Error("set delete failed", "set_id", setID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete the set"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rohan/flashdeck/internal/contrib"
)

// POST /api/v1/grade
// Grades one typed answer against a card. Malformed model output is
// absorbed by the grading pipeline; only transport failures error here.
func (s *Server) gradeAnswer(c *gin.Context) {
	var req struct {
		Question       string `json:"question"`
		ExpectedAnswer string `json:"expectedAnswer"`
		Answer         string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.ExpectedAnswer) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question and expectedAnswer are required"})
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer is required"})
		return
	}

	result, err := s.grader.Grade(c.Request.Context(), req.Question, req.ExpectedAnswer, req.Answer)
	if err != nil {
		s.log.Error("grading failed", "user_id", currentUser(c), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "grading failed, please retry"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// POST /api/v1/study/complete
// Finalizes a finished study session: records the study_completed event
// and its bonus events.
func (s *Server) completeStudy(c *gin.Context) {
	var req struct {
		SetID                 uuid.UUID `json:"setId"`
		CardsStudied          int       `json:"cardsStudied"`
		CorrectCards          int       `json:"correctCards"`
		AIScorePercentage     int       `json:"aiScorePercentage"`
		ManualScorePercentage int       `json:"manualScorePercentage"`
		FinalScorePercentage  int       `json:"finalScorePercentage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.CardsStudied < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cardsStudied must be at least 1"})
		return
	}
	if req.CorrectCards < 0 || req.CorrectCards > req.CardsStudied {
		c.JSON(http.StatusBadRequest, gin.H{"error": "correctCards out of range"})
		return
	}

	userID := currentUser(c)
	err := s.recorder.RecordStudyCompletion(c.Request.Context(), userID, contrib.StudyOutcome{
		SetID:                 req.SetID,
		CardsStudied:          req.CardsStudied,
		CorrectCards:          req.CorrectCards,
		AIScorePercentage:     req.AIScorePercentage,
		ManualScorePercentage: req.ManualScorePercentage,
		FinalScorePercentage:  req.FinalScorePercentage,
	})
	if err != nil {
		s.log.Error("study completion not recorded", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record the session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recorded":     true,
		"perfectScore": req.FinalScorePercentage == 100,
	})
}

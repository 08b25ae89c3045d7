// Package server exposes the flashdeck API over HTTP. It is thin glue:
// request decoding, auth, and status mapping around the contrib, study,
// grading, and cardgen packages.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rohan/flashdeck/internal/auth"
	"github.com/rohan/flashdeck/internal/cardgen"
	"github.com/rohan/flashdeck/internal/contrib"
	"github.com/rohan/flashdeck/internal/grading"
	"github.com/rohan/flashdeck/internal/logger"
	"github.com/rohan/flashdeck/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	log        *logger.Logger
	verifier   *auth.Verifier
	sets       *store.SetRepo
	aggregator *contrib.Aggregator
	recorder   *contrib.Recorder
	grader     *grading.Grader
	generator  *cardgen.Generator

	http *http.Server
}

// Options carries the server's collaborators.
type Options struct {
	Addr        string
	CORSOrigins []string

	Log        *logger.Logger
	Verifier   *auth.Verifier
	Sets       *store.SetRepo
	Aggregator *contrib.Aggregator
	Recorder   *contrib.Recorder
	Grader     *grading.Grader
	Generator  *cardgen.Generator
}

// New builds the server and its routes.
func New(opts Options) *Server {
	s := &Server{
		log:        opts.Log,
		verifier:   opts.Verifier,
		sets:       opts.Sets,
		aggregator: opts.Aggregator,
		recorder:   opts.Recorder,
		grader:     opts.Grader,
		generator:  opts.Generator,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(s.requireUser())
	{
		api.POST("/sets", s.createSet)
		api.GET("/sets", s.listSets)
		api.GET("/sets/:id", s.getSet)
		api.DELETE("/sets/:id", s.deleteSet)

		api.POST("/grade", s.gradeAnswer)
		api.POST("/study/complete", s.completeStudy)

		api.GET("/contributions", s.getContributions)
		api.GET("/stats", s.getStats)
		api.POST("/app-open", s.appOpen)
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("http server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

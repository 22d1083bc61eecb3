package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/okaras/spikearena-backend/internal/config"
	"github.com/okaras/spikearena-backend/internal/game"
)

type Server struct {
	port int
	hub  *game.Hub
}

func NewServer(cfg config.Config) *http.Server {
	s := &Server{
		port: cfg.Port,
		hub:  game.NewHub(cfg.BroadcastHz),
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

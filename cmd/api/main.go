package main

import (
	"log"

	"github.com/okaras/spikearena-backend/internal/config"
	"github.com/okaras/spikearena-backend/internal/server"
)

func main() {
	cfg := config.Load()

	srv := server.NewServer(cfg)

	log.Printf("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("cannot start server: %s", err)
	}
}

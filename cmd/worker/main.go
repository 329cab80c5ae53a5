package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/Apurer/backoffice-purchasing/internal/app/api"
	"github.com/Apurer/backoffice-purchasing/internal/app/worker"
)

func main() {
	_ = godotenv.Load()
	cfg, err := api.LoadConfig("purchasing-worker")
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := worker.Run(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/Apurer/backoffice-purchasing/internal/app/api"
)

func main() {
	_ = godotenv.Load()
	cfg, err := api.LoadConfig("purchasing-api")
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := api.Run(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}

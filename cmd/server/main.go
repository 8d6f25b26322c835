package main

import (
	"context"
	"log"

	"keywatch/internal/app"
)

func main() {
	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("Monitor stopped with error: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"

	"machine-guard/internal/config"
	"machine-guard/internal/database"
	"machine-guard/internal/export"
	"machine-guard/internal/logger"
	"machine-guard/internal/repository"

	"go.uber.org/zap"
)

func main() {
	var (
		deviceID = flag.String("device", "", "device id to export (empty = all devices)")
		limit    = flag.Int("limit", 1000, "maximum readings per device")
		output   = flag.String("output", "readings.xlsx", "output workbook path")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, "console", "export-readings")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	readingRepo := repository.NewReadingRepository(db, log)
	exporter := export.NewExporter(readingRepo, log)

	if err := exporter.WriteWorkbook(context.Background(), *output, *deviceID, *limit); err != nil {
		log.Fatal("Export failed", zap.Error(err))
	}
}

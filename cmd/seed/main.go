package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/woeat/pipeline/config"
	"github.com/woeat/pipeline/internal/seed"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage"
	"github.com/woeat/pipeline/pkg/table"
)

func main() {
	params := seed.DefaultParams()
	start := flag.String("start", params.StartDate.Format(table.DateLayout), "first day of the dataset")
	flag.IntVar(&params.Days, "days", params.Days, "number of days to generate")
	flag.IntVar(&params.OrdersPerDay, "orders", params.OrdersPerDay, "orders per day")
	flag.IntVar(&params.Restaurants, "restaurants", params.Restaurants, "number of restaurants")
	flag.IntVar(&params.Drivers, "drivers", params.Drivers, "number of drivers")
	flag.Int64Var(&params.Seed, "seed", params.Seed, "rng seed; same seed, same dataset")
	flag.Parse()

	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stdout"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	startDate, err := time.ParseInLocation(table.DateLayout, *start, time.UTC)
	if err != nil {
		log.Error("Invalid -start date", logger.String("start", *start), logger.Error(err))
		os.Exit(1)
	}
	params.StartDate = startDate

	cfg := config.GetPipelineConfig()
	store, err := storage.NewStorage(storage.StorageType(cfg.StorageType), log)
	if err != nil {
		log.Error("Failed to initialize storage", logger.Error(err))
		os.Exit(1)
	}

	if err := seed.New(store, cfg, log, params).Run(context.Background()); err != nil {
		log.Error("Seeding failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Seeding complete")
}

// Команда seed загружает справочник муниципалитетов и барангаев из YAML в базу данных.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/shenikar/emergency_response_system/internal/config"
	"github.com/shenikar/emergency_response_system/internal/repository"
	"github.com/shenikar/emergency_response_system/internal/service"
	"github.com/shenikar/emergency_response_system/pkg/logger"
	"github.com/shenikar/emergency_response_system/pkg/postgres"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	path := flag.String("file", cfg.SeedFile, "path to the geography seed file")
	flag.Parse()

	seed, err := config.LoadGeographySeed(*path)
	if err != nil {
		log.Fatalf("Failed to load seed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()

	geography := service.NewGeographyService(repository.NewTxManager(dbpool), repository.NewGeographyRepository(dbpool), log)
	municipalities, barangays, err := geography.Seed(ctx, seed)
	if err != nil {
		log.Fatalf("Failed to seed geography: %v", err)
	}
	log.WithFields(logrus.Fields{
		"file":           *path,
		"municipalities": municipalities,
		"barangays":      barangays,
	}).Info("Seed completed")
}

package main

import (
	"context"
	"log"

	"loan-insights-be/internal/bootstrap"
	"loan-insights-be/internal/config"
	"loan-insights-be/internal/server"
	"loan-insights-be/internal/tracer"
	"loan-insights-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Databases
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	loanDB, err := database.NewLoanDB(cfg.LoanDB.Connection)
	if err != nil {
		log.Panicf("Unable to connect to loan DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, loanDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Export Worker...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Export Worker Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}

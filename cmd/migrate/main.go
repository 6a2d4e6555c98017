// Command migrate applies the database schema. Production deployments skip
// automatic migration on startup, so schema changes are rolled out with this
// command instead.
package main

import (
	"log"

	"recolecta/internal/config"
	"recolecta/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := db.AutoMigrate(database.Models()...); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("migrations applied")
}

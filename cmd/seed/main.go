// Command main runs the database seeder for Recolecta.
package main

import (
	"flag"
	"log"

	"recolecta/internal/config"
	"recolecta/internal/database"
	"recolecta/internal/rules"
	"recolecta/internal/seed"
)

func main() {
	numProviders := flag.Int("providers", 4, "Number of providers to create")
	numRequests := flag.Int("requests", 40, "Number of requests to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	demo := flag.Bool("demo", false, "Seed a full demo data set including pickups")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	rulesCfg, err := rules.Load(cfg.RulesFile)
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}
	ruleSet, err := rulesCfg.Select(cfg.Ruleset)
	if err != nil {
		log.Fatalf("Failed to select ruleset: %v", err)
	}

	s := seed.NewSeeder(database.DB, ruleSet)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *demo {
		if err := s.Demo(); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
	} else {
		providers, err := s.Providers(*numProviders)
		if err != nil {
			log.Fatalf("Provider seeding failed: %v", err)
		}
		requests, err := s.Requests(*numRequests, 60)
		if err != nil {
			log.Fatalf("Request seeding failed: %v", err)
		}
		log.Printf("Seeded %d providers and %d pending requests", len(providers), len(requests))
	}

	log.Println("Seeding complete")
}

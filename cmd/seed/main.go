// Command main runs the database seeder for the approval platform.
package main

import (
	"flag"
	"log"

	"smartcity/internal/config"
	"smartcity/internal/database"
	"smartcity/internal/seed"
)

func main() {
	// Parse command line flags
	numOwners := flag.Int("owners", 40, "Number of business owners (each with one request) to create")
	numCitizens := flag.Int("citizens", 20, "Number of citizens to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d owners, %d citizens, clean=%v\n", *numOwners, *numCitizens, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Demo(db, seed.Options{
		NumOwners:   *numOwners,
		NumCitizens: *numCitizens,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done! Demo users share the password: DemoPassword12!@")
}

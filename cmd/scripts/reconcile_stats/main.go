// Command reconcile_stats rebuilds every donor's stats row from donation
// history in a relational database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/impactbridge/marketplace/internal/config"
	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/internal/storage/relational"
	"github.com/joho/godotenv"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print current global stats and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Driver == "memory" {
		log.Fatalf("Nothing to reconcile: the memory driver keeps no data between runs")
	}

	db, err := models.OpenDB(&cfg.Database, "release")
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	store := relational.New(db)
	defer store.Close()

	fmt.Println("Connected to database successfully!")
	fmt.Println("")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	before, err := store.GetGlobalStats(ctx)
	if err != nil {
		log.Fatalf("Failed to query global stats: %v", err)
	}
	printGlobal("Before", before)

	if *dryRun {
		fmt.Println("Dry run, no rows written.")
		return
	}

	reconciler := services.NewStatsReconciler(store, &cfg.Reconcile)
	n, err := reconciler.Run(ctx)
	if err != nil {
		log.Fatalf("Failed to reconcile stats: %v", err)
	}

	fmt.Printf("Rewrote stats for %d donors\n", n)
	fmt.Println("")

	var drifted int64
	db.WithContext(ctx).
		Table("user_stats AS s").
		Joins("LEFT JOIN (SELECT user_id, SUM(amount) AS total FROM donations GROUP BY user_id) d ON d.user_id = s.user_id").
		Where("s.total_donated <> COALESCE(d.total, 0)").
		Count(&drifted)
	if drifted > 0 {
		fmt.Printf("Warning: %d stats rows still differ from donation history\n", drifted)
		os.Exit(1)
	}
	fmt.Println("All stats rows match donation history.")
}

func printGlobal(label string, g models.GlobalStats) {
	fmt.Printf("%s:\n", label)
	fmt.Printf("  %-22s %d\n", "Active projects", g.TotalProjects)
	fmt.Printf("  %-22s %s\n", "Total donated", g.TotalDonated.StringFixed(2))
	fmt.Printf("  %-22s %d\n", "Donations", g.TotalDonations)
	fmt.Printf("  %-22s %d\n", "Donors", g.TotalDonors)
	fmt.Printf("  %-22s %d\n", "Lives impacted", g.TotalLivesImpacted)
	fmt.Println("")
}

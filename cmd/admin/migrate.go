package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.Parse()

	if *dsn == "" {
		fmt.Println("DATABASE_URL is not set")
		os.Exit(1)
	}

	db, err := postgres.NewDB(context.Background(), postgres.Config{URL: *dsn})
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := postgres.Migrate(db.DB.DB); err != nil {
		panic(err)
	}

	fmt.Println("Successfully applied failed_fetches migrations")
}

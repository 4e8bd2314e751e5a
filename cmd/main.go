// verified-export writes the verified records of every collection in a
// MongoDB database to one CSV file per collection.
//
// Usage:
//
//	# Export the default "attendance" database into the working directory
//	MONGODB_URI=mongodb://localhost:27017 verified-export
//
//	# Choose database and output directory
//	verified-export --uri mongodb://localhost:27017 --database attendance --output-dir ./out
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefree/mage-tracker-go/internal/config"
	"github.com/magefree/mage-tracker-go/internal/storage"
)

// Imports a saved tracker state (for example the JSON value exported from the
// browser build's local storage) into the configured store.
func main() {
	configPath := flag.String("config", "config/tracker.yaml", "path to configuration file")
	force := flag.Bool("force", false, "overwrite an existing snapshot without asking")
	flag.Parse()

	jsonPath := "data/tracker_export.json"
	if flag.NArg() > 0 {
		jsonPath = flag.Arg(0)
	}

	absPath, err := filepath.Abs(jsonPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== Tracker Snapshot Import ===")
	fmt.Printf("Snapshot file: %s\n", absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		log.Fatalf("Failed to read snapshot file: %v", err)
	}

	snap, err := storage.DecodeSnapshot(data)
	if err != nil {
		log.Fatalf("Snapshot is not usable: %v", err)
	}
	fmt.Printf("✓ Parsed snapshot: format %s, %d players, turn %d, %d log entries, %d archived matches\n",
		snap.FormatID, len(snap.Players), snap.Turn, len(snap.EventLog), len(snap.MatchHistory))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("Opening %s store...\n", cfg.Storage.Driver)
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, cfg.Storage.Key); err == nil && !*force {
		fmt.Printf("Warning: store already holds a snapshot under %q\n", cfg.Storage.Key)
		fmt.Print("Do you want to replace it? (yes/no): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "yes" {
			fmt.Println("Import cancelled")
			return
		}
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Fatalf("Failed to check existing snapshot: %v", err)
	}

	encoded, err := storage.EncodeSnapshot(snap)
	if err != nil {
		log.Fatalf("Failed to encode snapshot: %v", err)
	}
	if err := store.Put(ctx, cfg.Storage.Key, encoded); err != nil {
		log.Fatalf("Failed to write snapshot: %v", err)
	}

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("✓ Snapshot stored under %q (%d bytes)\n", cfg.Storage.Key, len(encoded))
}

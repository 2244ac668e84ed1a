// Command import_weights loads a directory tree of probe weight files into a
// SQLite weight database for deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"probeserve/probe"
	"probeserve/store"
)

func main() {
	src := flag.String("src", "models/trained_linear_probes", "weight file directory")
	dbPath := flag.String("db", "probes.db", "SQLite database output path")
	flag.Parse()

	fileStore := store.NewFileStore(*src)

	db, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	imported := 0
	err = fileStore.Walk(ctx, func(model, probeType string, layer int, w probe.Weights) error {
		if err := db.PutWeights(ctx, model, probeType, layer, w); err != nil {
			return fmt.Errorf("import %s/%s/%d: %w", model, probeType, layer, err)
		}
		imported++
		log.Printf("imported %s/%s layer %d (%d weights)", model, probeType, layer, len(w.Weights))
		return nil
	})
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("imported %d probes into %s\n", imported, *dbPath)
}

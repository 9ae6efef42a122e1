// Command catalog-import loads target courses in bulk from a CSV or
// XLSX file exported by the registrar.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"transfer-credit-api/config"
	"transfer-credit-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var file string
	flag.StringVar(&file, "file", "", "path to the catalog CSV or XLSX file (required)")
	flag.Parse()

	if file == "" && flag.NArg() == 1 {
		file = flag.Arg(0)
	}
	if file == "" {
		log.Fatal("usage: catalog-import -file catalog.csv")
	}

	config.InitDB()
	config.MigrateDB()

	f, err := os.Open(file)
	if err != nil {
		log.Fatalf("cannot open catalog file: %v", err)
	}
	defer f.Close()

	importer := services.NewCatalogImportService(nil)
	result, err := importer.Import(f, filepath.Base(file))
	if err != nil {
		log.Fatalf("catalog import failed: %v", err)
	}

	fmt.Printf("Courses created: %d, skipped: %d, failed: %d\n",
		result.Created, result.Skipped, result.Failed)
	for _, msg := range result.Errors {
		fmt.Printf("  %s\n", msg)
	}

	if result.Failed > 0 {
		os.Exit(2)
	}
}

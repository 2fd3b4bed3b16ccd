// The application starts the diet tracking HTTP API server.
//
// Configuration is read from a JSON config file, environment variables and
// command-line flags. Depending on the configuration the service keeps its
// data in PostgreSQL, in a JSON file or in memory.
package main

import (
	"fmt"
	"log"

	"github.com/patric-chuzhbe/dietapi/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	theApp, err := app.New()
	if err != nil {
		return fmt.Errorf("cannot initialize the application: %w", err)
	}
	defer theApp.Close()

	return theApp.Run()
}

// The patentlens binary is the operator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/patentlens/patentlens/internal/interfaces/cli"
)

func main() {
	// Local development convenience; absent .env is not an error.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}
}

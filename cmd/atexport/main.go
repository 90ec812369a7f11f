// Command atexport exports Airtable bases into SQL databases.
//
// A run typically looks like
//
//	atexport create-config config.yml   # then edit the tables section
//	atexport validate
//	atexport all
//
// Each step can also be run on its own; see atexport --help.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env in the working directory is optional.
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		printError(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

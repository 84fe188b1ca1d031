package main

import (
	"log"

	_ "github.com/adamwrona/galleria/docs"

	"github.com/adamwrona/galleria/cmd"
	"github.com/adamwrona/galleria/config"
)

func main() {
	log.Printf("galleria %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}

/*
This command provides an executable version of traject, serving the
applications defined in a YAML route file.

For the list of command line options, run:

	traject -help

For details about the route file format, please see the documentation of
the routefile package.
*/
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/traject"
	"github.com/zalando/traject/config"
)

var (
	version string
	commit  string
)

func main() {
	cfg := config.NewConfig()
	printVersion := cfg.Flags.Bool("version", false, "print traject version")
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	if *printVersion {
		fmt.Printf("Traject version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	log.SetLevel(cfg.ApplicationLogLevel)
	if err := traject.Run(cfg.ToOptions()); err != nil {
		log.Fatal(err)
	}
}

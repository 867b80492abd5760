// Command ancestry-report estimates the combined number of generations
// separating pairs of individuals from the IBD segments they share, using
// the maximum-likelihood model of Huff et al. 2011.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/ancestry.report/internal/version"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: ancestry-report <command> [flags]

Commands:
  run      estimate relationships from a GERMLINE matchfile
  serve    serve stored results over HTTP
  purge    physically delete soft-deleted results
  migrate  manage the results database schema
  version  print version information

Run 'ancestry-report <command> -h' for command flags.
`)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "serve":
		serveCommand(os.Args[2:])
	case "purge":
		purgeCommand(os.Args[2:])
	case "migrate":
		migrateCommand(os.Args[2:])
	case "version":
		fmt.Printf("ancestry-report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

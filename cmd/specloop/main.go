package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		printUsage()
		os.Exit(0)
	}
	if os.Args[1] == "--version" {
		fmt.Println(versionLine())
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runCmd(os.Args[2:]))
	case "init":
		os.Exit(initCmd(os.Args[2:]))
	case "status":
		os.Exit(statusCmd(os.Args[2:]))
	case "watch":
		os.Exit(watchCmd(os.Args[2:]))
	case "version":
		fmt.Println(versionLine())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`specloop

Drives a specification through a step pipeline until the tests pass.

Usage:
  specloop <command> [flags]

Commands:
  run          Execute the pipeline (or resume an existing run)
  init         Write a starter pipeline config
  status       Show the state of a run
  watch        Follow a run's state as it changes
  version      Show the version
  help         Show this message

Examples:
  specloop init
  specloop run -config specloop.yaml
  specloop run -resume 20260830-101500-ab12cd34 -from-step run-tests
  specloop watch 20260830-101500-ab12cd34

Run 'specloop <command> -h' for details.`)
}

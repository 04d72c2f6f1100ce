// harforge turns captured HAR traffic into working API scripts by driving an
// AI coding agent, mirroring its output into the user's workspace as it works
// and accounting every token it spends.
package main

import (
	"fmt"
	"os"
)

const version = "0.3.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printHelp()
		os.Exit(1)
	}

	switch args[0] {
	case "run":
		os.Exit(runCommand(args[1:]))
	case "cost":
		os.Exit(costCommand(args[1:]))
	case "version", "--version", "-v":
		fmt.Println("harforge " + version)
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", args[0])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("harforge - generate API scripts from captured HAR traffic")
	fmt.Println()
	fmt.Println("Usage: harforge <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run      Analyze a HAR capture and generate scripts")
	fmt.Println("  cost     Print the rate card for a model")
	fmt.Println("  version  Print the harforge version")
	fmt.Println("  help     Show this help")
	fmt.Println()
	fmt.Println("Run 'harforge run --help' for run options.")
}

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/harforge/harforge/internal/config"
	"github.com/harforge/harforge/internal/costing"
)

// costCommand prints the per-MTok rate card for a model, or lists all known
// models when none is given.
func costCommand(args []string) int {
	ratesPath := ""
	var models []string

	i := 0
	for i < len(args) {
		switch args[i] {
		case "-h", "--help":
			fmt.Println("Usage: harforge cost [MODEL] [--rates FILE]")
			fmt.Println()
			fmt.Println("Prints USD per million tokens. Unknown models fall back to the")
			fmt.Println("default rate. --rates overlays a YAML rate file on the builtins.")
			return 0
		case "--rates":
			ratesPath = flagValue(args, &i, "--rates")
		default:
			if len(args[i]) > 0 && args[i][0] == '-' {
				fmt.Fprintf(os.Stderr, "Error: unknown option: %s\n", args[i])
				return 1
			}
			models = append(models, args[i])
			i++
		}
	}

	table := costing.DefaultTable()
	if ratesPath != "" {
		var err error
		table, err = costing.LoadTable(ratesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if len(models) == 0 {
		models = table.Models()
		sort.Strings(models)
	}

	fmt.Printf("%-28s %10s %10s %12s %10s %10s\n",
		"model", "input", "output", "cache write", "cache read", "reasoning")
	for _, m := range models {
		r := table.Rates(m)
		name := m
		if m == table.Fallback() {
			name += " *"
		}
		fmt.Printf("%-28s %10.4f %10.4f %12.4f %10.4f %10.4f\n",
			name, r.Input, r.Output, r.CacheCreation, r.CacheRead, r.Reasoning)
	}
	fmt.Printf("\n* fallback for unknown models · estimate ratio %d chars/token\n",
		config.TokenEstimateRatio)
	return 0
}

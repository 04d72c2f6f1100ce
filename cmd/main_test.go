package main

import "testing"

func TestRunCommand_RequiresHarAndGoal(t *testing.T) {
	if code := runCommand([]string{"--goal", "scrape"}); code != 1 {
		t.Fatalf("expected exit 1 without --har, got %d", code)
	}
	if code := runCommand([]string{"--har", "traffic.har"}); code != 1 {
		t.Fatalf("expected exit 1 without --goal, got %d", code)
	}
}

func TestRunCommand_UnknownOption(t *testing.T) {
	if code := runCommand([]string{"--bogus"}); code != 1 {
		t.Fatalf("expected exit 1 for unknown option, got %d", code)
	}
}

func TestCostCommand_KnownModel(t *testing.T) {
	if code := costCommand([]string{"claude-opus-4-5"}); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
}

func TestCostCommand_ListsAll(t *testing.T) {
	if code := costCommand(nil); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harforge/harforge/internal/agent"
	"github.com/harforge/harforge/internal/config"
	"github.com/harforge/harforge/internal/costing"
	"github.com/harforge/harforge/internal/messages"
	"github.com/harforge/harforge/internal/monitoring"
	"github.com/harforge/harforge/internal/run"
	"github.com/harforge/harforge/internal/status"
	"github.com/harforge/harforge/internal/tui"
)

// runCommand executes one analysis run end to end. Returns the process exit
// code: 0 success, 1 usage or setup error, 2 run failure.
func runCommand(args []string) int {
	var (
		harFlag          string
		goalFlag         string
		modelFlag        string
		outputFlag       string
		instructionsFlag string
		configFlag       string
		resumeFlag       string
		syncFlag         bool
		noSyncFlag       bool
		freshFlag        bool
		statusFlag       bool
		debugFlag        bool
		quietFlag        bool
	)

	i := 0
	for i < len(args) {
		switch args[i] {
		case "-h", "--help":
			printRunHelp()
			return 0
		case "--har":
			harFlag = flagValue(args, &i, "--har")
		case "-g", "--goal":
			goalFlag = flagValue(args, &i, "--goal")
		case "-m", "--model":
			modelFlag = flagValue(args, &i, "--model")
		case "-o", "--output-dir":
			outputFlag = flagValue(args, &i, "--output-dir")
		case "--instructions":
			instructionsFlag = flagValue(args, &i, "--instructions")
		case "-c", "--config":
			configFlag = flagValue(args, &i, "--config")
		case "--resume":
			resumeFlag = flagValue(args, &i, "--resume")
		case "--sync":
			syncFlag = true
			i++
		case "--no-sync":
			noSyncFlag = true
			i++
		case "--fresh":
			freshFlag = true
			i++
		case "--status":
			statusFlag = true
			i++
		case "-d", "--debug":
			debugFlag = true
			i++
		case "-q", "--quiet":
			quietFlag = true
			i++
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown option: %s\n", args[i])
			return 1
		}
	}

	if harFlag == "" || goalFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: --har and --goal are required")
		fmt.Fprintln(os.Stderr, "Run 'harforge run --help' for usage.")
		return 1
	}

	loadEnvFiles()
	setupLogging(debugFlag)

	cfg, err := config.Load(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if outputFlag != "" {
		cfg.Run.OutputRoot = outputFlag
	}
	if modelFlag != "" {
		cfg.Run.Model = modelFlag
	}
	if syncFlag {
		cfg.Sync.Enabled = true
	}
	if noSyncFlag {
		cfg.Sync.Enabled = false
	}
	if statusFlag {
		cfg.Status.Enabled = true
	}

	if _, err := os.Stat(harFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: HAR file not readable: %v\n", err)
		return 1
	}

	id := run.NewIdentity(resumeFlag, harFlag, goalFlag)
	id.Model = cfg.Run.Model
	id.Instructions = instructionsFlag
	id.OutputRoot = cfg.Run.OutputRoot
	id.Fresh = freshFlag

	if err := os.MkdirAll(id.RunDir(), config.DirPerm); err != nil {
		fmt.Fprintf(os.Stderr, "Error: create run dir: %v\n", err)
		return 1
	}

	table := costing.DefaultTable()
	if cfg.Pricing.RatesPath != "" {
		table, err = costing.LoadTable(cfg.Pricing.RatesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	store, err := messages.Open(id.DBPath(), id.ID, id.Goal, id.HARPath, id.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open message store: %v\n", err)
		return 1
	}
	defer store.Close() //nolint:errcheck

	eventsPath := ""
	if cfg.Monitoring.Enabled {
		eventsPath = cfg.Monitoring.Path
		if eventsPath == "" {
			eventsPath = id.EventsPath()
		}
	}
	events, err := monitoring.NewEventWriter(eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open event log: %v\n", err)
		return 1
	}

	notifier := tui.NewNotifier(quietFlag)
	ctrl := run.NewController(run.Options{
		Identity:      id,
		Table:         table,
		Sink:          notifier,
		Events:        events,
		SyncEnabled:   cfg.Sync.Enabled,
		WorkspaceRoot: cfg.Sync.WorkspaceRoot,
		Debounce:      cfg.Debounce(),
	})

	if cfg.Status.Enabled {
		srv := status.New(ctrl, 0)
		if err := srv.Start(cfg.Status.Port); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Dashboard: %s\n", srv.URL())
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Stop(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := &agent.CLI{
		Binary:     os.Getenv("HARFORGE_AGENT"),
		Model:      id.Model,
		ScriptsDir: id.ScriptsDir(),
		Recorder:   store,
		OnUsage:    ctrl.RecordUsage,
	}

	result, err := ctrl.Execute(ctx, eng)
	if err != nil {
		notifier.RunFailed(err)
		return 2
	}

	if result.FinalText != "" {
		fmt.Println(result.FinalText)
	}
	if dir := ctrl.MirrorDir(); dir != "" {
		fmt.Printf("Scripts synced to %s\n", dir)
	}
	notifier.RunDone(ctrl.Cost())
	return 0
}

// flagValue consumes the value of args[*i] or exits with a usage error.
func flagValue(args []string, i *int, name string) string {
	if *i+1 >= len(args) {
		fmt.Fprintf(os.Stderr, "Error: %s requires a value\n", name)
		os.Exit(1)
	}
	v := args[*i+1]
	*i += 2
	return v
}

func printRunHelp() {
	fmt.Println("Analyze a HAR capture and generate API scripts")
	fmt.Println()
	fmt.Println("Usage: harforge run --har FILE --goal TEXT [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("      --har FILE            HAR capture to analyze (required)")
	fmt.Println("  -g, --goal TEXT           What the generated scripts should do (required)")
	fmt.Println("  -m, --model MODEL         Model override for the agent")
	fmt.Println("  -o, --output-dir DIR      Run artifact root (default: .harforge)")
	fmt.Println("      --instructions TEXT   Extra instructions appended to the prompt")
	fmt.Println("      --sync                Mirror generated scripts into the workspace")
	fmt.Println("      --no-sync             Disable mirroring even if configured on")
	fmt.Println("      --fresh               Ignore prior conversation history")
	fmt.Println("      --resume ID           Resume an earlier run by id")
	fmt.Println("      --status              Serve the local status dashboard")
	fmt.Println("  -c, --config FILE         Config file (default: ~/.config/harforge/config.yaml)")
	fmt.Println("  -d, --debug               Enable debug logging")
	fmt.Println("  -q, --quiet               Suppress terminal notifications")
	fmt.Println("  -h, --help                Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  HARFORGE_AGENT        Agent binary (default: claude)")
	fmt.Println("  HARFORGE_OUTPUT_DIR   Same as --output-dir")
	fmt.Println("  HARFORGE_MODEL        Same as --model")
	fmt.Println("  HARFORGE_SYNC         Same as --sync / --no-sync (true/false)")
}

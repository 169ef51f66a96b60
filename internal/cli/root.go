package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "run":
		return runScrape(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "summary":
		return runSummary(args[1:])
	case "schedule":
		return runSchedule(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("moledao-spider: turn captured moledao.io career HAR files into Word documents")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  moledao-spider run --har-dir ./har")
	fmt.Println("  moledao-spider run --tui")
	fmt.Println("  moledao-spider summary")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run       parse the HAR snapshot, normalize jobs and export jobs-NNN.docx")
	fmt.Println("  settings  show/update export settings (output dir, jobs per doc, fields)")
	fmt.Println("  summary   print the last completed run")
	fmt.Println("  schedule  run on a cron schedule until interrupted")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Environment (or .env): MOLEDAO_HAR_DIR, MOLEDAO_SETTINGS_PATH, MOLEDAO_STATE_DIR,")
	fmt.Println("    NATS_URL, REDIS_URL, DATABASE_URL, OTEL_EXPORTER_OTLP_ENDPOINT")
	fmt.Println("  - Ctrl-C cancels a run; nothing is exported for a cancelled run")
}

package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/Paxxs/moledao-spider/internal/config"
	"github.com/Paxxs/moledao-spider/internal/runstore"
)

func runSummary(args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	summary, ok, err := runstore.LoadSummary(cfg.StateDir)
	if err != nil {
		return err
	}
	if *jsonOut {
		if !ok {
			return printJSON(map[string]any{"summary": nil})
		}
		return printJSON(map[string]any{"summary": summary})
	}
	if !ok {
		fmt.Println("no completed run yet")
		return nil
	}
	printSummary(os.Stdout, summary)
	return nil
}

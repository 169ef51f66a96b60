package cli

import (
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"

	"github.com/Paxxs/moledao-spider/internal/config"
	"github.com/Paxxs/moledao-spider/internal/settings"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "reset":
		return runSettingsReset(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func resolveSettingsPath(flagValue string) (string, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.SettingsPath, nil
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	path := fs.String("settings", "", "settings file (default: $MOLEDAO_SETTINGS_PATH)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settingsPath, err := resolveSettingsPath(*path)
	if err != nil {
		return err
	}
	s, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"settings_path": settingsPath,
			"settings":      s,
		})
	}
	fmt.Printf("settings: %s\n", settingsPath)
	printSettings(s)
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	path := fs.String("settings", "", "settings file (default: $MOLEDAO_SETTINGS_PATH)")
	outputDir := fs.String("output-dir", "", "export directory (empty keeps current)")
	jobsPerDoc := fs.Int("jobs-per-doc", 0, "records per document, 1-20 (0 keeps current)")
	fieldOrder := fs.String("field-order", "", "comma-separated field order, e.g. location,type,tag")
	hide := fs.String("hide", "", "comma-separated fields to hide")
	show := fs.String("show", "", "comma-separated fields to unhide")
	appendMode := fs.String("append", "", "append numbering: on|off (empty keeps current)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settingsPath, err := resolveSettingsPath(*path)
	if err != nil {
		return err
	}
	s, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}

	if v := strings.TrimSpace(*outputDir); v != "" {
		s.OutputDirectory = v
	}
	if *jobsPerDoc != 0 {
		s.JobsPerDoc = *jobsPerDoc
	}
	if strings.TrimSpace(*fieldOrder) != "" {
		keys, err := settings.ParseFieldKeys(*fieldOrder)
		if err != nil {
			return err
		}
		s.FieldOrder = keys
	}
	if strings.TrimSpace(*hide) != "" {
		keys, err := settings.ParseFieldKeys(*hide)
		if err != nil {
			return err
		}
		s.HiddenFields = append(s.HiddenFields, keys...)
	}
	if strings.TrimSpace(*show) != "" {
		keys, err := settings.ParseFieldKeys(*show)
		if err != nil {
			return err
		}
		s.HiddenFields = slices.DeleteFunc(s.HiddenFields, func(k settings.FieldKey) bool {
			return slices.Contains(keys, k)
		})
	}
	if strings.TrimSpace(*appendMode) != "" {
		v, ok := parseBool(*appendMode)
		if !ok {
			return errors.New("--append must be on or off")
		}
		s.Append = v
	}

	if err := settings.Validate(s); err != nil {
		return err
	}
	saved, err := settings.Save(settingsPath, s)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"settings_path": settingsPath,
			"settings":      saved,
		})
	}
	fmt.Printf("updated settings in %s\n", settingsPath)
	printSettings(saved)
	return nil
}

func runSettingsReset(args []string) error {
	fs := flag.NewFlagSet("settings reset", flag.ContinueOnError)
	path := fs.String("settings", "", "settings file (default: $MOLEDAO_SETTINGS_PATH)")
	yes := fs.Bool("yes", false, "skip confirmation")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settingsPath, err := resolveSettingsPath(*path)
	if err != nil {
		return err
	}
	if !*yes {
		ok, err := promptConfirm(fmt.Sprintf("reset %s to defaults? [y/N]: ", settingsPath))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("reset cancelled")
			return nil
		}
	}
	saved, err := settings.Save(settingsPath, settings.Defaults())
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"settings_path": settingsPath,
			"settings":      saved,
		})
	}
	fmt.Printf("reset settings in %s\n", settingsPath)
	printSettings(saved)
	return nil
}

func printSettings(s settings.RunSettings) {
	out := s.OutputDirectory
	if out == "" {
		out = "(default: ~/Documents/YuanJunjie-AiGrabber)"
	}
	fmt.Printf("output_directory: %s\n", out)
	fmt.Printf("jobs_per_doc: %d\n", s.JobsPerDoc)
	fmt.Printf("field_order: %s\n", joinKeys(s.FieldOrder))
	hidden := joinKeys(s.HiddenFields)
	if hidden == "" {
		hidden = "(none)"
	}
	fmt.Printf("hidden_fields: %s\n", hidden)
	fmt.Printf("append: %t\n", s.Append)
}

func joinKeys(keys []settings.FieldKey) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, ",")
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show [--json]")
	fmt.Println("  settings set [--output-dir D] [--jobs-per-doc N] [--field-order a,b,..] [--hide k,..] [--show k,..] [--append on|off]")
	fmt.Println("  settings reset [--yes]")
}

// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"drclean-workers/internal/common/errors"
	"drclean-workers/internal/common/validation"
	"drclean-workers/pkg/registry"
)

const (
	defaultRegistryPath = "pkg/registry/activities.json"
	defaultWorkersDir   = "internal/workers"
)

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	statusCmd := flag.NewFlagSet("set-status", flag.ExitOnError)

	var registryPath string
	for _, fs := range []*flag.FlagSet{listCmd, validateCmd, statusCmd} {
		fs.StringVar(&registryPath, "path", defaultRegistryPath, "Path to registry file")
	}

	category := listCmd.String("category", "", "Only list activities of this category (e.g., invoice)")
	workersDir := validateCmd.String("workers", defaultWorkersDir, "Worker packages root; empty skips the package check")
	taskType := statusCmd.String("task", "", "Task type to update (e.g., send-invoice-email)")
	status := statusCmd.String("status", "", "New status: "+strings.Join(registry.Statuses, ", "))

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		err = withRegistry(registryPath, func(reg *registry.ActivityRegistry) error {
			return listActivities(os.Stdout, reg, *category)
		})

	case "validate":
		validateCmd.Parse(os.Args[2:])
		err = withRegistry(registryPath, func(reg *registry.ActivityRegistry) error {
			problems := validateRegistry(reg, *workersDir)
			for _, p := range problems {
				fmt.Println("  -", p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) found", len(problems))
			}
			fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		})

	case "set-status":
		statusCmd.Parse(os.Args[2:])
		if *taskType == "" || *status == "" {
			fmt.Println("Error: task and status are required for set-status.")
			statusCmd.Usage()
			os.Exit(1)
		}
		err = withRegistry(registryPath, func(reg *registry.ActivityRegistry) error {
			if err := setStatus(reg, *taskType, *status, time.Now()); err != nil {
				return err
			}
			if err := saveRegistry(reg, registryPath); err != nil {
				return err
			}
			fmt.Printf("Updated %s to %s\n", *taskType, *status)
			return nil
		})

	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func withRegistry(path string, fn func(*registry.ActivityRegistry) error) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	return fn(reg)
}

func listActivities(w io.Writer, reg *registry.ActivityRegistry, category string) error {
	activities := make([]registry.Activity, 0, len(reg.Activities))
	for _, a := range reg.Activities {
		if category == "" || a.Category == category {
			activities = append(activities, a)
		}
	}
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].Category != activities[j].Category {
			return activities[i].Category < activities[j].Category
		}
		return activities[i].TaskType < activities[j].TaskType
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTASK TYPE\tSTATUS\tTIMEOUT\tERROR CODES")
	for _, a := range activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Category, a.TaskType, a.ImplementationStatus, a.Timeout, strings.Join(a.ErrorCodes, ","))
	}
	return tw.Flush()
}

// validateRegistry collects every problem instead of stopping at the first:
// registry structure, compilable input schemas, error codes the job error
// handler knows how to route and, when workersDir is set, a worker package
// per task type.
func validateRegistry(reg *registry.ActivityRegistry, workersDir string) []string {
	var problems []string
	if err := reg.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := validation.NewSchemaValidator(reg); err != nil {
		problems = append(problems, err.Error())
	}

	for _, a := range reg.Activities {
		for _, code := range a.ErrorCodes {
			if !errors.IsKnownCode(errors.ErrorCode(code)) {
				problems = append(problems, fmt.Sprintf("%s: error code %s is not in the error catalog", a.TaskType, code))
			}
		}
		if workersDir == "" {
			continue
		}
		handler := filepath.Join(workersDir, a.Category, a.TaskType, "handler.go")
		if _, err := os.Stat(handler); err != nil {
			problems = append(problems, fmt.Sprintf("%s: no worker package at %s", a.TaskType, filepath.Dir(handler)))
		}
	}
	return problems
}

func setStatus(reg *registry.ActivityRegistry, taskType, status string, now time.Time) error {
	if !registry.IsKnownStatus(status) {
		return fmt.Errorf("unknown status %q (want one of %s)", status, strings.Join(registry.Statuses, ", "))
	}
	for i := range reg.Activities {
		if reg.Activities[i].TaskType == taskType {
			reg.Activities[i].ImplementationStatus = status
			reg.LastUpdated = now.UTC().Format(time.RFC3339)
			return nil
		}
	}
	return fmt.Errorf("task type %s not found", taskType)
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  list        List activities (optionally -category invoice)
  validate    Check the registry, its schemas, error codes and worker packages
  set-status  Change an activity's implementation status
  help        Show this help message

Examples:
  registry-updater list -category job
  registry-updater validate -path pkg/registry/activities.json
  registry-updater set-status -task send-invoice-email -status verified

Use 'registry-updater <command> -h' for more information about a command.

`)
}

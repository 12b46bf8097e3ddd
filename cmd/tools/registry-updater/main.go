// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"healthsim-pipeline/pkg/registry"
)

// Maintains configs/fieldspec-registry.json: list entries, add a task
// skeleton, and validate that every entry compiles into a field spec.
func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	listPath := listCmd.String("path", "configs/fieldspec-registry.json", "Path to registry file")

	addPath := addCmd.String("path", "configs/fieldspec-registry.json", "Path to registry file")
	taskType := addCmd.String("taskType", "", "Task type (e.g., summarize-handover)")
	displayName := addCmd.String("displayName", "", "Display name")
	description := addCmd.String("description", "", "Description")

	validatePath := validateCmd.String("path", "configs/fieldspec-registry.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		reg := mustLoad(*listPath)
		fmt.Printf("Registry %s (updated %s), %d tasks:\n", reg.Version, reg.LastUpdated, len(reg.Tasks))
		for _, entry := range reg.Tasks {
			fallback := ""
			if entry.TextFallbackField != "" {
				fallback = fmt.Sprintf(", text fallback via %q", entry.TextFallbackField)
			}
			fmt.Printf("  %-20s %d fields%s\n", entry.TaskType, len(entry.Fields), fallback)
		}

	case "add":
		addCmd.Parse(os.Args[2:])
		if *taskType == "" || *displayName == "" {
			fmt.Println("Error: taskType and displayName are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		reg := mustLoad(*addPath)
		if _, exists := reg.Task(*taskType); exists {
			fmt.Printf("Error: task %q already exists.\n", *taskType)
			os.Exit(1)
		}
		reg.Tasks = append(reg.Tasks, registry.TaskEntry{
			TaskType:    *taskType,
			DisplayName: *displayName,
			Description: *description,
			Fields: []registry.FieldEntry{
				{Name: "result", Kind: "string", Default: ""},
			},
		})
		reg.LastUpdated = time.Now().UTC().Format("2006-01-02")
		mustSave(*addPath, reg)
		fmt.Printf("Added task %q with a placeholder field; edit %s to declare its real shape.\n", *taskType, *addPath)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg := mustLoad(*validatePath)
		failed := false
		for _, entry := range reg.Tasks {
			if _, err := entry.Compile(); err != nil {
				fmt.Printf("  FAIL %s: %v\n", entry.TaskType, err)
				failed = true
				continue
			}
			fmt.Printf("  ok   %s\n", entry.TaskType)
		}
		if failed {
			os.Exit(1)
		}
		fmt.Println("Registry is valid.")

	default:
		help()
		os.Exit(1)
	}
}

func mustLoad(path string) *registry.TaskRegistry {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		fmt.Printf("Error loading registry: %v\n", err)
		os.Exit(1)
	}
	return reg
}

func mustSave(path string, reg *registry.TaskRegistry) {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding registry: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		fmt.Printf("Error writing registry: %v\n", err)
		os.Exit(1)
	}
}

func help() {
	fmt.Println(`Usage: registry-updater <command> [flags]

Commands:
  list      List registered task types
  add       Add a task skeleton to the registry
  validate  Compile every entry and report errors`)
}

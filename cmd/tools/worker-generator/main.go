// cmd/tools/worker-generator/main.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"drclean-workers/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name        string
	PackageName string
	Dir         string
	TaskType    string
	Description string
	Timeout     string
	InputFields []Field
	ErrorCodes  []ErrorVar
}

type Field struct {
	Name     string
	Type     string
	JSONName string
	Required bool
}

type ErrorVar struct {
	Name string
	Code string
}

// goType maps a JSON schema property to a Go type.
func goType(prop map[string]interface{}) string {
	jt, _ := prop["type"].(string)
	switch jt {
	case "string":
		if f, _ := prop["format"].(string); f == "date-time" {
			return "*time.Time"
		}
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "array":
		if items, ok := prop["items"].(map[string]interface{}); ok {
			return "[]" + goType(items)
		}
		return "[]interface{}"
	case "object":
		return "map[string]interface{}"
	default:
		return "interface{}"
	}
}

// inputFields lists the schema properties in a stable order, required first.
func inputFields(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	fields := make([]Field, 0, len(props))
	for name, raw := range props {
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		fields = append(fields, Field{
			Name:     exportedName(name),
			Type:     goType(prop),
			JSONName: name,
			Required: required[name],
		})
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Required != fields[j].Required {
			return fields[i].Required
		}
		return fields[i].JSONName < fields[j].JSONName
	})
	return fields
}

var initialisms = []struct{ suffix, upper string }{
	{"Ids", "IDs"},
	{"Id", "ID"},
	{"Url", "URL"},
}

// exportedName turns clientId into ClientID and teamMemberIds into TeamMemberIDs.
func exportedName(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	for _, in := range initialisms {
		if strings.HasSuffix(s, in.suffix) {
			return strings.TrimSuffix(s, in.suffix) + in.upper
		}
	}
	return s
}

// errorVars names a sentinel per catalogued code, e.g. CLIENT_NOT_FOUND
// becomes ErrClientNotFound.
func errorVars(codes []string) []ErrorVar {
	out := make([]ErrorVar, 0, len(codes))
	for _, code := range codes {
		var b strings.Builder
		b.WriteString("Err")
		for _, part := range strings.Split(strings.ToLower(code), "_") {
			if part == "" {
				continue
			}
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
		out = append(out, ErrorVar{Name: b.String(), Code: code})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return "handles the job"
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func usesTime(fields []Field) bool {
	for _, f := range fields {
		if strings.Contains(f.Type, "time.") {
			return true
		}
	}
	return false
}

const configTemplate = `// {{ .Dir }}/config.go
package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: {{ .Timeout }},
	}
}
`

const modelsTemplate = `// {{ .Dir }}/models.go
package {{ .PackageName }}
{{ if usesTime .InputFields }}
import "time"
{{ end }}
type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .Type }} ` + "`" + `json:"{{ .JSONName }}{{ if not .Required }},omitempty{{ end }}"` + "`" + `
{{- end }}
}

type Output struct {
}
`

const handlerTemplate = `// {{ .Dir }}/handler.go
package {{ .PackageName }}

import (
	"context"
{{- if .ErrorCodes }}
	"errors"
{{- end }}

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
)

{{ if .ErrorCodes -}}
var (
{{- range .ErrorCodes }}
	{{ .Name }} = errors.New("{{ .Code }}")
{{- end }}
)
{{- end }}

type Handler struct {
	config *Config
	runner *camunda.Runner
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		runner: camunda.NewRunner(TaskType, config.Timeout, log),
		logger: log,
	}
}

func (h *Handler) WithRecorder(rec camunda.JobRecorder) *Handler {
	h.runner.WithRecorder(rec)
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

// Execute {{ .Description }}.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return &Output{}, nil
}
`

const testTemplate = `// {{ .Dir }}/handler_test.go
package {{ .PackageName }}

import (
	"context"
	"testing"

	"drclean-workers/internal/common/camunda/camundatest"
	"drclean-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{})

	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestHandler_Handle(t *testing.T) {
	h := createTestHandler(t)
	client := camundatest.NewJobClient()

	h.Handle(client, camundatest.NewJob(1, TaskType, map[string]interface{}{}))

	assert.Len(t, client.Completed(), 1)
}
`

// timeoutLiteral renders a registry timeout such as "15s" as Go source.
func timeoutLiteral(s string) string {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return "30 * time.Second"
	}
	if d%time.Second == 0 {
		return fmt.Sprintf("%d * time.Second", d/time.Second)
	}
	return fmt.Sprintf("%d * time.Millisecond", d/time.Millisecond)
}

func render(name, tmplStr string, data WorkerData) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{"usesTime": usesTime}).Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", name, err)
	}
	return src, nil
}

func main() {
	taskType := flag.String("task", "", "Task type from the registry (e.g., send-invoice-email)")
	outputDir := flag.String("output", "./internal/workers", "Root directory of the worker packages")
	registryPath := flag.String("registry", "pkg/registry/activities.json", "Path to the activity registry JSON file")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if *taskType == "" {
		fmt.Println("Usage: worker-generator --task <task-type> [--output <dir>] [--registry <path>] [--force]")
		fmt.Println("\nExample:")
		fmt.Println("  go run ./cmd/tools/worker-generator --task delete-client")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	activity, ok := reg.Find(*taskType)
	if !ok {
		fmt.Printf("Task type '%s' not found in registry %s\n", *taskType, *registryPath)
		os.Exit(1)
	}

	workerDir := filepath.Join(*outputDir, activity.Category, activity.TaskType)
	data := WorkerData{
		Name:        activity.DisplayName,
		PackageName: strings.ReplaceAll(activity.TaskType, "-", ""),
		Dir:         filepath.ToSlash(filepath.Join("internal/workers", activity.Category, activity.TaskType)),
		TaskType:    activity.TaskType,
		Description: lowerFirst(activity.Description),
		Timeout:     timeoutLiteral(activity.Timeout),
		InputFields: inputFields(activity.InputSchema),
		ErrorCodes:  errorVars(activity.ErrorCodes),
	}

	if err := os.MkdirAll(workerDir, 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	files := []struct {
		name string
		tmpl string
	}{
		{"config.go", configTemplate},
		{"models.go", modelsTemplate},
		{"handler.go", handlerTemplate},
		{"handler_test.go", testTemplate},
	}

	for _, f := range files {
		path := filepath.Join(workerDir, f.name)
		if _, err := os.Stat(path); err == nil && !*force {
			fmt.Printf("- Skipped %s (exists)\n", path)
			continue
		}
		src, err := render(f.name, f.tmpl, data)
		if err != nil {
			fmt.Printf("Error generating %s: %v\n", path, err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, src, 0644); err != nil {
			fmt.Printf("Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("✓ Generated %s\n", path)
	}

	fmt.Printf("\n✅ Worker scaffold generated at: %s\n", workerDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Fill in Output and Execute in handler.go\n")
	fmt.Printf("  2. Register the worker in cmd/worker-manager/main.go\n")
	fmt.Printf("  3. Add its settings under workers: in configs/config.yaml\n")
}

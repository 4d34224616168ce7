// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"book-recommender/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name         string
	PackageName  string
	Dir          string
	TaskType     string
	Description  string
	Category     string
	Timeout      string
	InputFields  string
	OutputFields string
	ErrorCodes   []string
}

// properties extracts the properties of an object schema.
func properties(schema map[string]interface{}) map[string]interface{} {
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		return props
	}
	return map[string]interface{}{}
}

// goType maps a JSON schema property to a Go type.
func goType(prop map[string]interface{}) string {
	switch prop["type"] {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		if items, ok := prop["items"].(map[string]interface{}); ok {
			return "[]" + goType(items)
		}
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// structFields renders struct fields for an object schema in property order.
func structFields(schema map[string]interface{}) string {
	props := properties(schema)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	required := map[string]bool{}
	if req, ok := schema["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	fields := make([]string, 0, len(names))
	for _, name := range names {
		prop, _ := props[name].(map[string]interface{})
		tag := name
		if !required[name] {
			tag += ",omitempty"
		}
		fields = append(fields, fmt.Sprintf("\t%s %s `json:\"%s\"`", fieldName(name), goType(prop), tag))
	}
	return strings.Join(fields, "\n")
}

// fieldName turns a camelCase property into an exported Go name, keeping
// the Id suffix idiomatic.
func fieldName(prop string) string {
	if prop == "" {
		return prop
	}
	name := strings.ToUpper(prop[:1]) + prop[1:]
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}

const configTemplate = `// internal/workers/{{ .Category }}/{{ .Dir }}/config.go
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

const modelsTemplate = `// internal/workers/{{ .Category }}/{{ .Dir }}/models.go
package {{ .PackageName }}

type Input struct {
{{ .InputFields }}
}

type Output struct {
{{ .OutputFields }}
}
`

const handlerTemplate = `// internal/workers/{{ .Category }}/{{ .Dir }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"time"

	"book-recommender/internal/common/camunda"
	"book-recommender/internal/common/errors"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/metrics"
	"book-recommender/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "{{ .TaskType }}"

// Handler {{ .Description }}.
type Handler struct {
	config       *Config
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		validator:    validator,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.ParseVariables(job, h.validator, TaskType, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	return &Output{}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`

const testTemplate = `// internal/workers/{{ .Category }}/{{ .Dir }}/handler_test.go
package {{ .PackageName }}

import (
	"context"
	"testing"
	"time"

	"book-recommender/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

// ==========================
// Execute
// ==========================

func TestExecute(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{})

	require.NoError(t, err)
	assert.NotNil(t, out)
}
`

// goDuration renders a registry timeout ("120s") as a Go expression.
func goDuration(timeout string) string {
	timeout = strings.TrimSpace(timeout)
	switch {
	case strings.HasSuffix(timeout, "ms"):
		return strings.TrimSuffix(timeout, "ms") + " * time.Millisecond"
	case strings.HasSuffix(timeout, "s"):
		return strings.TrimSuffix(timeout, "s") + " * time.Second"
	case strings.HasSuffix(timeout, "m"):
		return strings.TrimSuffix(timeout, "m") + " * time.Minute"
	default:
		return "10 * time.Second"
	}
}

// sentence lowercases the first letter so the description reads after
// "Handler" in a doc comment.
func sentence(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return "handles the job"
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func workerData(a registry.Activity) WorkerData {
	return WorkerData{
		Name:         a.DisplayName,
		PackageName:  strings.ReplaceAll(a.TaskType, "-", ""),
		Dir:          a.TaskType,
		TaskType:     a.TaskType,
		Description:  sentence(a.Description),
		Category:     strings.ToLower(a.Category),
		Timeout:      goDuration(a.Timeout),
		InputFields:  structFields(a.InputSchema),
		OutputFields: structFields(a.OutputSchema),
		ErrorCodes:   a.ErrorCodes,
	}
}

// render executes every template for data and returns file name to content.
func render(data WorkerData) (map[string]string, error) {
	templates := map[string]string{
		"config.go":       configTemplate,
		"models.go":       modelsTemplate,
		"handler.go":      handlerTemplate,
		"handler_test.go": testTemplate,
	}

	files := make(map[string]string, len(templates))
	for name, text := range templates {
		tmpl, err := template.New(name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		var b strings.Builder
		if err := tmpl.Execute(&b, data); err != nil {
			return nil, fmt.Errorf("execute template %s: %w", name, err)
		}
		files[name] = b.String()
	}
	return files, nil
}

func main() {
	taskType := flag.String("task", "", "Task type from registry (e.g., add-favorite)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if *taskType == "" {
		fmt.Println("Usage: worker-generator -task <taskType> [-output <dir>] [-registry <path>] [-force]")
		fmt.Println("\nExample:")
		fmt.Println("  go run ./cmd/tools/worker-generator -task export-favorites")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}
	activity, err := reg.ByTaskType(*taskType)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if activity.Description == "" {
		activity.Description = activity.DisplayName
	}

	data := workerData(activity)
	files, err := render(data)
	if err != nil {
		fmt.Printf("Error rendering worker: %v\n", err)
		os.Exit(1)
	}

	workerDir := filepath.Join(*outputDir, data.Category, data.Dir)
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(workerDir, name)
		if _, err := os.Stat(path); err == nil && !*force {
			fmt.Printf("Skipping existing %s\n", path)
			continue
		}
		if err := os.WriteFile(path, []byte(files[name]), 0644); err != nil {
			fmt.Printf("Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", path)
	}

	fmt.Printf("\nWorker scaffold generated at: %s\n", workerDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement execute in handler.go\n")
	fmt.Printf("  2. Map failures to the registry error codes %v\n", data.ErrorCodes)
	fmt.Printf("  3. Register the worker in cmd/worker-manager/main.go\n")
	fmt.Printf("  4. Add the worker to configs/config.yaml\n")
}

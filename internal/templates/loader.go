package templates

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/daywise/internal/models"
)

// Loader manages loading and caching of prompt templates.
// The built-in default template is always present unless a file overrides it.
type Loader struct {
	mu        sync.RWMutex
	templates map[string]*models.PromptTemplate
}

// NewLoader creates a loader holding only the built-in template
func NewLoader() *Loader {
	l := &Loader{
		templates: make(map[string]*models.PromptTemplate),
	}
	l.Add(Default())
	return l
}

// LoadFromDir loads all YAML templates from a directory.
// Files that fail to parse are skipped with a warning.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading prompt templates from directory", "dir", dir)

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load prompt template", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("prompt templates loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single template from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var tmpl models.PromptTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if tmpl.Name == "" {
		tmpl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if strings.TrimSpace(tmpl.SystemPrompt) == "" {
		return fmt.Errorf("system_prompt is required")
	}
	if strings.TrimSpace(tmpl.UserPrompt) == "" {
		return fmt.Errorf("user_prompt is required")
	}

	l.Add(&tmpl)

	slog.Info("prompt template loaded", "name", tmpl.Name, "file", path)
	return nil
}

// Get retrieves a template by name
func (l *Loader) Get(name string) *models.PromptTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.templates[name]
}

// List returns all loaded templates sorted by name
func (l *Loader) List() []*models.PromptTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.PromptTemplate, 0, len(l.templates))
	for _, tmpl := range l.templates {
		result = append(result, tmpl)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Add programmatically adds or replaces a template
func (l *Loader) Add(tmpl *models.PromptTemplate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[tmpl.Name] = tmpl
}

// Remove removes a template by name
func (l *Loader) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.templates, name)
}

package agent

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/terra-clan/daywise/internal/models"
)

// Topics-per-day bounds requested from the model
const (
	MinTopicsPerDay = 2
	MaxTopicsPerDay = 6
)

// PromptBuilder renders the system and user prompts from a PromptTemplate
type PromptBuilder struct {
	name   string
	system string
	user   *template.Template
}

type userPromptData struct {
	SyllabusContent string
	TargetDays      int
	MinTopicsPerDay int
	MaxTopicsPerDay int
}

// NewPromptBuilder compiles the template's user prompt
func NewPromptBuilder(tmpl *models.PromptTemplate) (*PromptBuilder, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("prompt template is required")
	}
	if tmpl.SystemPrompt == "" || tmpl.UserPrompt == "" {
		return nil, fmt.Errorf("prompt template %q: system_prompt and user_prompt are required", tmpl.Name)
	}

	user, err := template.New(tmpl.Name).Option("missingkey=error").Parse(tmpl.UserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user prompt of template %q: %w", tmpl.Name, err)
	}

	return &PromptBuilder{
		name:   tmpl.Name,
		system: tmpl.SystemPrompt,
		user:   user,
	}, nil
}

// Name returns the name of the underlying template
func (b *PromptBuilder) Name() string {
	return b.name
}

// SystemPrompt returns the static role and output-format contract
func (b *PromptBuilder) SystemPrompt() string {
	return b.system
}

// UserPrompt renders the per-request prompt. The syllabus is passed through verbatim.
func (b *PromptBuilder) UserPrompt(syllabusContent string, targetDays int) (string, error) {
	if targetDays <= 0 {
		return "", &models.ValidationError{Field: "target_days", Message: "target_days must be positive"}
	}

	var buf bytes.Buffer
	err := b.user.Execute(&buf, userPromptData{
		SyllabusContent: syllabusContent,
		TargetDays:      targetDays,
		MinTopicsPerDay: MinTopicsPerDay,
		MaxTopicsPerDay: MaxTopicsPerDay,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render user prompt: %w", err)
	}
	return buf.String(), nil
}

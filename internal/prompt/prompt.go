// Package prompt renders the requests sent to the LLM for one batch of
// accounts.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Veraticus/transco/internal/batch"
	"github.com/Veraticus/transco/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed templates/default.yaml
var templateFS embed.FS

// Templates is the YAML document prompts are rendered from.
type Templates struct {
	ReferenceHeaders map[string]string `yaml:"reference_headers"`
	Format           map[string]string `yaml:"format"`
	System           string            `yaml:"system"`
	Instructions     string            `yaml:"instructions"`
	AccountsHeader   string            `yaml:"accounts_header"`
	Language         string            `yaml:"language"`
}

// Input is everything needed to render the prompt for one batch.
type Input struct {
	Class     model.AccountClass
	Mode      model.ResponseMode
	Language  string
	Lines     []string // rendered account lines of the batch
	Reference []string // rendered reference entries of Class
}

// Builder renders prompts from a parsed template set.
type Builder struct {
	format    map[model.ResponseMode]*template.Template
	language  *template.Template
	templates Templates
}

// DefaultTemplates returns the embedded template set.
func DefaultTemplates() (Templates, error) {
	data, err := templateFS.ReadFile("templates/default.yaml")
	if err != nil {
		return Templates{}, fmt.Errorf("failed to read embedded templates: %w", err)
	}
	return ParseTemplates(data)
}

// LoadTemplates reads a template set from path. Sections missing from the
// file fall back to the embedded defaults.
func LoadTemplates(path string) (Templates, error) {
	defaults, err := DefaultTemplates()
	if err != nil {
		return Templates{}, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the operator
	if err != nil {
		return Templates{}, fmt.Errorf("failed to read prompt templates: %w", err)
	}

	custom, err := ParseTemplates(data)
	if err != nil {
		return Templates{}, err
	}

	return custom.merge(defaults), nil
}

// ParseTemplates decodes a YAML template document.
func ParseTemplates(data []byte) (Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Templates{}, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return t, nil
}

func (t Templates) merge(defaults Templates) Templates {
	if t.System == "" {
		t.System = defaults.System
	}
	if t.Instructions == "" {
		t.Instructions = defaults.Instructions
	}
	if t.AccountsHeader == "" {
		t.AccountsHeader = defaults.AccountsHeader
	}
	if t.Language == "" {
		t.Language = defaults.Language
	}
	if t.ReferenceHeaders == nil {
		t.ReferenceHeaders = map[string]string{}
	}
	for k, v := range defaults.ReferenceHeaders {
		if _, ok := t.ReferenceHeaders[k]; !ok {
			t.ReferenceHeaders[k] = v
		}
	}
	if t.Format == nil {
		t.Format = map[string]string{}
	}
	for k, v := range defaults.Format {
		if _, ok := t.Format[k]; !ok {
			t.Format[k] = v
		}
	}
	return t
}

// NewBuilder parses the templated sections of t.
func NewBuilder(t Templates) (*Builder, error) {
	b := &Builder{
		templates: t,
		format:    make(map[model.ResponseMode]*template.Template, 2),
	}

	for _, mode := range []model.ResponseMode{model.ModeSchema, model.ModeFreeText} {
		text, ok := t.Format[string(mode)]
		if !ok {
			return nil, fmt.Errorf("prompt templates have no format section for %s", mode)
		}
		tmpl, err := template.New(string(mode)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s format template: %w", mode, err)
		}
		b.format[mode] = tmpl
	}

	if t.Language != "" {
		tmpl, err := template.New("language").Parse(t.Language)
		if err != nil {
			return nil, fmt.Errorf("failed to parse language template: %w", err)
		}
		b.language = tmpl
	}

	return b, nil
}

// NewDefaultBuilder returns a builder over the embedded templates.
func NewDefaultBuilder() (*Builder, error) {
	t, err := DefaultTemplates()
	if err != nil {
		return nil, err
	}
	return NewBuilder(t)
}

// System returns the system message sent with every request.
func (b *Builder) System() string {
	return b.templates.System
}

// Base renders the prompt for in without its account lines. Its token
// count seeds the batch planner.
func (b *Builder) Base(in Input) (string, error) {
	in.Lines = nil
	return b.Build(in)
}

// Build renders the full prompt: instructions, the batch lines, the
// reference entries of the class, the answer format and the language.
func (b *Builder) Build(in Input) (string, error) {
	format, ok := b.format[in.Mode]
	if !ok {
		return "", fmt.Errorf("unsupported response mode: %s", in.Mode)
	}

	var out strings.Builder
	out.WriteString(strings.TrimSpace(b.templates.Instructions))
	out.WriteString("\n\n")

	out.WriteString(b.templates.AccountsHeader)
	out.WriteString("\n")
	for _, line := range in.Lines {
		out.WriteString(line)
		out.WriteString(batch.Delimiter)
	}
	out.WriteString("\n")

	out.WriteString(b.referenceHeader(in.Class))
	out.WriteString("\n")
	out.WriteString(strings.Join(in.Reference, "\n"))
	out.WriteString("\n\n")

	var buf bytes.Buffer
	if err := format.Execute(&buf, struct{ Fields []model.MatchField }{model.MatchFields}); err != nil {
		return "", fmt.Errorf("failed to render format instructions: %w", err)
	}
	out.WriteString(strings.TrimSpace(buf.String()))

	if in.Language != "" && b.language != nil {
		buf.Reset()
		if err := b.language.Execute(&buf, struct{ Language string }{in.Language}); err != nil {
			return "", fmt.Errorf("failed to render language instruction: %w", err)
		}
		out.WriteString("\n\n")
		out.WriteString(strings.TrimSpace(buf.String()))
	}

	return out.String(), nil
}

func (b *Builder) referenceHeader(class model.AccountClass) string {
	if h, ok := b.templates.ReferenceHeaders[string(class)]; ok {
		return h
	}
	return fmt.Sprintf("Existing %s accounts in the chart of accounts:", class.Label())
}

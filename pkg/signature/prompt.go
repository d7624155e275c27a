package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

const defaultPromptTemplate = `{{.Instruction}}
{{range $i, $d := .Demos}}
--- Example {{inc $i}} ---
{{range $d.Inputs}}{{.Name}}: {{.Value}}
{{end}}Response: {{$d.Response}}
{{end}}
--- Input ---
{{range .Inputs}}{{.Name}} ({{.Description}}): {{.Value}}
{{end}}
--- Response format ---
Reply with a single JSON object and nothing else. Keys:
{{range .Outputs}}- "{{.Name}}" ({{.Type}}{{if not .Required}}, optional, null if unknown{{end}}{{.Bounds}}): {{.Description}}
{{end}}`

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var defaultTemplate = template.Must(template.New("signature").Funcs(templateFuncs).Parse(defaultPromptTemplate))

type renderedInput struct {
	Name        string
	Description string
	Value       string
}

type renderedOutput struct {
	Name        string
	Description string
	Type        FieldType
	Required    bool
	Bounds      string
}

type renderedDemo struct {
	Inputs   []renderedInput
	Response string
}

type promptData struct {
	Instruction string
	Inputs      []renderedInput
	Outputs     []renderedOutput
	Demos       []renderedDemo
}

// Render builds the prompt for inputs. A non-nil cfg may replace the
// instruction, the template and the demos.
func (s Signature) Render(inputs Values, cfg *Config) (string, error) {
	if err := s.CheckInputs(inputs); err != nil {
		return "", err
	}

	data := promptData{Instruction: s.Instruction}
	tmpl := defaultTemplate
	if cfg != nil {
		if cfg.Instruction != "" {
			data.Instruction = cfg.Instruction
		}
		if cfg.tmpl != nil {
			tmpl = cfg.tmpl
		}
		for _, d := range cfg.Demos {
			demo, err := s.renderDemo(d)
			if err != nil {
				return "", err
			}
			data.Demos = append(data.Demos, demo)
		}
	}

	for _, f := range s.Inputs {
		data.Inputs = append(data.Inputs, renderedInput{
			Name:        f.Name,
			Description: f.Description,
			Value:       formatValue(inputs[f.Name]),
		})
	}
	for _, f := range s.Outputs {
		data.Outputs = append(data.Outputs, renderedOutput{
			Name:        f.Name,
			Description: f.Description,
			Type:        f.Type,
			Required:    f.Required,
			Bounds:      formatBounds(f),
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", s.Name, err)
	}
	return buf.String(), nil
}

func (s Signature) renderDemo(d Demo) (renderedDemo, error) {
	var demo renderedDemo
	for _, f := range s.Inputs {
		if v, ok := d.Inputs[f.Name]; ok {
			demo.Inputs = append(demo.Inputs, renderedInput{Name: f.Name, Value: formatValue(v)})
		}
	}
	resp, err := json.Marshal(d.Outputs)
	if err != nil {
		return demo, fmt.Errorf("failed to marshal demo outputs: %w", err)
	}
	demo.Response = string(resp)
	return demo, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case *string:
		if val == nil {
			return "null"
		}
		return *val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func formatBounds(f Field) string {
	var parts []string
	if f.Min != nil {
		parts = append(parts, fmt.Sprintf(">= %g", *f.Min))
	}
	if f.Max != nil {
		parts = append(parts, fmt.Sprintf("<= %g", *f.Max))
	}
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}

// Package template renders chat messages into a single completion prompt.
//
// Three formats are built in:
//
//   - chatml: <|im_start|>role\ncontent<|im_end|> blocks followed by an open
//     block for the response role
//   - plain: "role: content" lines followed by "role:" for the response
//   - custom: a caller supplied text/template
//
// Custom templates are executed with a Data value, so they can range over
// .Messages and refer to .ResponseRole.
package template

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
	"github.com/rhuss/chatbridge/pkg/openai"
)

// Supported template formats.
const (
	FormatChatML = "chatml"
	FormatPlain  = "plain"
	FormatCustom = "custom"
)

const chatMLText = `{{range .Messages}}<|im_start|>{{.Role}}
{{.Content}}<|im_end|>
{{end}}<|im_start|>{{.ResponseRole}}
`

const plainText = `{{range .Messages}}{{.Role}}: {{.Content}}
{{end}}{{.ResponseRole}}:`

// Config selects and configures a templater.
type Config struct {
	Format       string `yaml:"format"`
	Text         string `yaml:"text"`
	TextFile     string `yaml:"text_file"`
	ResponseRole string `yaml:"response_role"`
}

// Data is the value a template is executed with.
type Data struct {
	Messages     []openai.ChatCompletionMessage
	ResponseRole string
}

// Templater renders messages with a parsed text/template. It is safe for
// concurrent use.
type Templater struct {
	name string
	tmpl *template.Template
	role string
}

// Ensure Templater implements openai.ChatTemplater at compile time.
var _ openai.ChatTemplater = (*Templater)(nil)

// New creates the templater described by cfg. An empty format means chatml.
func New(cfg Config) (*Templater, error) {
	role := cfg.ResponseRole
	if role == "" {
		role = openai.DefaultResponseRole
	}

	switch strings.ToLower(cfg.Format) {
	case "", FormatChatML:
		return ChatML(role), nil
	case FormatPlain:
		return Plain(role), nil
	case FormatCustom:
		text := cfg.Text
		if text == "" && cfg.TextFile != "" {
			data, err := os.ReadFile(cfg.TextFile)
			if err != nil {
				return nil, fmt.Errorf("reading template file %s: %w", cfg.TextFile, err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("custom template requires text or text_file")
		}
		return Custom(text, role)
	default:
		return nil, fmt.Errorf("unknown template format %q (valid: chatml, plain, custom)", cfg.Format)
	}
}

// ChatML returns a templater producing ChatML prompts.
func ChatML(responseRole string) *Templater {
	return mustBuiltin(FormatChatML, chatMLText, responseRole)
}

// Plain returns a templater producing "role: content" transcripts.
func Plain(responseRole string) *Templater {
	return mustBuiltin(FormatPlain, plainText, responseRole)
}

// Custom parses text as a text/template. Executing a field that does not
// exist is an error rather than an empty string.
func Custom(text, responseRole string) (*Templater, error) {
	tmpl, err := template.New(FormatCustom).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing chat template: %w", err)
	}
	return &Templater{name: FormatCustom, tmpl: tmpl, role: roleOrDefault(responseRole)}, nil
}

func mustBuiltin(name, text, responseRole string) *Templater {
	return &Templater{
		name: name,
		tmpl: template.Must(template.New(name).Parse(text)),
		role: roleOrDefault(responseRole),
	}
}

func roleOrDefault(role string) string {
	if role == "" {
		return openai.DefaultResponseRole
	}
	return role
}

// Name returns the template format name.
func (t *Templater) Name() string {
	return t.name
}

// ApplyChatTemplate renders messages into a prompt. An empty message list
// or an empty rendered prompt is an invalid request.
func (t *Templater) ApplyChatTemplate(messages []openai.ChatCompletionMessage) (*openai.ChatPrompt, error) {
	if len(messages) == 0 {
		return nil, api.NewInvalidRequestError("messages", "messages must not be empty")
	}

	var b strings.Builder
	if err := t.tmpl.Execute(&b, Data{Messages: messages, ResponseRole: t.role}); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("rendering %s template: %v", t.name, err))
	}
	prompt := b.String()
	if strings.TrimSpace(prompt) == "" {
		return nil, api.NewInvalidRequestError("messages", "chat template produced an empty prompt")
	}

	debug.Log(debug.Template, "prompt rendered",
		"format", t.name,
		"messages", len(messages),
		"prompt", debug.Truncate(prompt, 200),
	)

	return &openai.ChatPrompt{Prompt: prompt, ResponseRole: t.role}, nil
}

package notification

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
)

//go:embed templates.yaml
var defaultCatalogue []byte

var ErrUnknownKind = errors.New("unknown notification kind")

type templateSource struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiledTemplate struct {
	subject *template.Template
	body    *template.Template
}

// Rendered is a message ready for delivery.
type Rendered struct {
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Catalogue holds the parsed templates keyed by notification kind.
type Catalogue struct {
	templates map[usecases.NotificationKind]compiledTemplate
	markdown  *markdownRenderer
}

// DefaultCatalogue parses the embedded templates.
func DefaultCatalogue() (*Catalogue, error) {
	return ParseCatalogue(defaultCatalogue)
}

// ParseCatalogue parses a YAML document mapping kind to subject and body.
func ParseCatalogue(raw []byte) (*Catalogue, error) {
	var sources map[string]templateSource
	if err := yaml.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse notification catalogue: %w", err)
	}

	c := &Catalogue{
		templates: make(map[usecases.NotificationKind]compiledTemplate, len(sources)),
		markdown:  newMarkdownRenderer(),
	}
	for kind, src := range sources {
		if src.Subject == "" || src.Body == "" {
			return nil, fmt.Errorf("notification template %q needs a subject and a body", kind)
		}
		subject, err := template.New(kind + ".subject").Option("missingkey=error").Parse(src.Subject)
		if err != nil {
			return nil, fmt.Errorf("failed to parse subject of %q: %w", kind, err)
		}
		body, err := template.New(kind + ".body").Option("missingkey=error").Parse(src.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse body of %q: %w", kind, err)
		}
		c.templates[usecases.NotificationKind(kind)] = compiledTemplate{subject: subject, body: body}
	}
	return c, nil
}

func (c *Catalogue) Has(kind usecases.NotificationKind) bool {
	_, ok := c.templates[kind]
	return ok
}

// Render executes the templates of kind against data. The markdown body is
// kept as the plain-text part and converted to sanitized HTML for the
// alternative part.
func (c *Catalogue) Render(kind usecases.NotificationKind, data map[string]any) (*Rendered, error) {
	tmpl, ok := c.templates[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("failed to render subject of %s: %w", kind, err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render body of %s: %w", kind, err)
	}

	htmlBody, err := c.markdown.ToHTMLSanitized(body.String())
	if err != nil {
		return nil, err
	}

	return &Rendered{
		Subject:   subject.String(),
		PlainBody: body.String(),
		HTMLBody:  htmlBody,
	}, nil
}

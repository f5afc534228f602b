// Package prompt builds the system directives sent to the language model.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

//go:embed personas.yaml
var defaultPersonas []byte

// Persona holds the localized instructions for one locale.
type Persona struct {
	Persona         string `yaml:"persona"`
	Weather         string `yaml:"weather"`
	Search          string `yaml:"search"`
	Closing         string `yaml:"closing"`
	ExtractLocation string `yaml:"extract_location"`
	ClassifySearch  string `yaml:"classify_search"`
	Labels          Labels `yaml:"labels"`
}

// Labels are the headings of the context block.
type Labels struct {
	Location string `yaml:"location"`
	Weather  string `yaml:"weather"`
	Search   string `yaml:"search"`
	None     string `yaml:"none"`
}

// Composer renders prompts from per-locale personas.
type Composer struct {
	personas map[domain.Locale]*Persona
}

// NewComposer loads the embedded personas.
func NewComposer() (*Composer, error) {
	return NewComposerFromYAML(defaultPersonas)
}

// NewComposerFromYAML loads personas from a YAML document keyed by locale.
func NewComposerFromYAML(data []byte) (*Composer, error) {
	raw := map[string]*Persona{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse personas: %w", err)
	}

	personas := make(map[domain.Locale]*Persona, len(raw))
	for key, p := range raw {
		loc := domain.Locale(key)
		if !loc.Valid() {
			return nil, fmt.Errorf("unsupported persona locale %q", key)
		}
		if strings.TrimSpace(p.Persona) == "" {
			return nil, fmt.Errorf("persona for %q is empty", key)
		}
		personas[loc] = p
	}
	if _, ok := personas[domain.DefaultLocale]; !ok {
		return nil, fmt.Errorf("missing persona for default locale %q", domain.DefaultLocale)
	}
	return &Composer{personas: personas}, nil
}

func (c *Composer) persona(locale domain.Locale) *Persona {
	if p, ok := c.personas[locale]; ok {
		return p
	}
	return c.personas[domain.DefaultLocale]
}

// Compose returns the system directive for a turn. The output depends
// only on its inputs.
func (c *Composer) Compose(locale domain.Locale, enrichment *domain.EnrichmentContext) string {
	p := c.persona(locale)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Persona))

	if enrichment == nil {
		return b.String()
	}

	hasWeather := enrichment.HasWeather()
	hasResults := enrichment.HasResults()
	if !hasWeather && !hasResults {
		return b.String()
	}

	if hasWeather {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(p.Weather))
	}
	if hasResults {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(p.Search))
	}

	b.WriteString("\n\nADDITIONAL CONTEXT:\n")
	location := enrichment.LocationName
	if location == "" {
		location = p.Labels.None
	}
	fmt.Fprintf(&b, "- %s: %s\n", p.Labels.Location, location)
	if hasWeather {
		fmt.Fprintf(&b, "- %s: %s\n", p.Labels.Weather, canonicalJSON(enrichment.Weather))
	}
	if hasResults {
		fmt.Fprintf(&b, "- %s:\n", p.Labels.Search)
		for i, r := range enrichment.WebResults {
			fmt.Fprintf(&b, "  %d. %s (%s)", i+1, r.Title, r.URL)
			if r.Snippet != "" && r.Snippet != r.Title {
				fmt.Fprintf(&b, ": %s", r.Snippet)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(p.Closing))
	return b.String()
}

// BuildMessages prepends the directive to the conversation. Incoming
// system turns are dropped so the directive is the only one.
func (c *Composer) BuildMessages(directive string, history []domain.ChatMessage) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: string(domain.RoleSystem), Content: directive})
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		if m.Role == domain.RoleAssistant && strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

// ExtractLocationPrompt returns the constrained place-name extraction prompt.
func (c *Composer) ExtractLocationPrompt(locale domain.Locale, message string) string {
	tpl := strings.TrimSpace(c.persona(locale).ExtractLocation)
	return strings.ReplaceAll(tpl, "{{message}}", message)
}

// ClassifySearchInstruction returns the search classifier instruction.
func (c *Composer) ClassifySearchInstruction(locale domain.Locale) string {
	return strings.TrimSpace(c.persona(locale).ClassifySearch)
}

// canonicalJSON re-serializes opaque JSON with sorted keys.
func canonicalJSON(raw []byte) string {
	var v any
	if err := sonic.ConfigStd.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

package render

import (
	"fmt"
	"regexp"
	"sort"
)

type TemplateName string

const (
	TemplateConfirmation TemplateName = "confirmation"
	TemplatePriceUpdate  TemplateName = "price_update"
	TemplateCheckin      TemplateName = "checkin"
	TemplateError        TemplateName = "error"
)

// Template is a fixed message pattern. Placeholders lists exactly the
// {{name}} tokens Pattern contains.
type Template struct {
	Name         TemplateName
	Subject      string
	Pattern      string
	Placeholders []string
}

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

var catalog = map[TemplateName]Template{
	TemplateConfirmation: {
		Name:         TemplateConfirmation,
		Subject:      "Booking Confirmed",
		Pattern:      "✅ Booking Confirmed\nRoom {{room}} blocked from {{start}} to {{end}}",
		Placeholders: []string{"room", "start", "end"},
	},
	TemplatePriceUpdate: {
		Name:         TemplatePriceUpdate,
		Subject:      "Price Updated",
		Pattern:      "💲 Price Updated\nRoom {{room}} set to ₹{{price}} on {{date}}",
		Placeholders: []string{"room", "price", "date"},
	},
	// Not produced by any intent yet.
	TemplateCheckin: {
		Name:         TemplateCheckin,
		Subject:      "Check-in Instructions",
		Pattern:      "🔑 Check-in Instructions\nCode: {{code}}\nMap: {{map_url}}",
		Placeholders: []string{"code", "map_url"},
	},
	TemplateError: {
		Name:         TemplateError,
		Subject:      "Error",
		Pattern:      "❌ Error\n{{message}}\nOur team is fixing this!",
		Placeholders: []string{"message"},
	},
}

func Lookup(name TemplateName) (Template, bool) {
	t, ok := catalog[name]
	return t, ok
}

func Names() []TemplateName {
	names := make([]TemplateName, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// parsePlaceholders returns the distinct placeholder names in pattern, in
// order of first appearance.
func parsePlaceholders(pattern string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(pattern, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// ValidateCatalog checks every template's declared placeholders against its
// pattern. The server refuses to start if this fails.
func ValidateCatalog() error {
	for _, name := range Names() {
		t := catalog[name]
		if t.Name != name {
			return fmt.Errorf("template %s registered as %s", t.Name, name)
		}
		if !sameSet(parsePlaceholders(t.Pattern), t.Placeholders) {
			return fmt.Errorf("template %s: pattern placeholders %v, declared %v",
				name, parsePlaceholders(t.Pattern), t.Placeholders)
		}
	}

	for kind, b := range intentBindings {
		t, ok := catalog[b.template]
		if !ok {
			return fmt.Errorf("intent %s bound to unknown template %s", kind, b.template)
		}
		bound := make([]string, 0, len(b.fields))
		for p := range b.fields {
			bound = append(bound, p)
		}
		if !sameSet(bound, t.Placeholders) {
			return fmt.Errorf("intent %s binds %v, template %s needs %v", kind, bound, t.Name, t.Placeholders)
		}
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

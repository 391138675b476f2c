package entity

import (
	"fmt"

	"github.com/autokuma/autokuma/internal/expr"
)

// applyDefaults implements §4.3 step 3: for every recognized field not
// present in settings, look up `default_settings["<type>.<field>"]`
// then the wildcard `default_settings["*.<field>"]`, render it against
// ctx, and fill it in.
func applyDefaults(settings map[string]any, fieldNames []string, typeKey string, defaults map[string]string, ctx map[string]any) error {
	for _, field := range fieldNames {
		if _, present := settings[field]; present {
			continue
		}
		tmpl, ok := defaults[typeKey+"."+field]
		if !ok {
			tmpl, ok = defaults["*."+field]
		}
		if !ok {
			continue
		}
		rendered, err := expr.Render(tmpl, ctx)
		if err != nil {
			return fmt.Errorf("default_settings for field %q: %w", field, err)
		}
		settings[field] = rendered
	}
	return nil
}

package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aymerick/raymond"
)

var templateRefPattern = regexp.MustCompile(`\{\{\{?\s*([^{}\s]+)\s*\}?\}\}`)

// RenderTemplate expands handlebars references like {{version}} in tmpl.
// Every reference must name a key of vars; values are inserted unescaped.
func RenderTemplate(tmpl string, vars map[string]string) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	for _, m := range templateRefPattern.FindAllStringSubmatch(tmpl, -1) {
		if _, ok := vars[m[1]]; !ok {
			return "", fmt.Errorf("unknown template variable %q in %q (known: %s)",
				m[1], tmpl, strings.Join(sortedKeys(vars), ", "))
		}
	}

	ctx := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		ctx[k] = raymond.SafeString(v)
	}

	out, err := raymond.Render(tmpl, ctx)
	if err != nil {
		return "", fmt.Errorf("rendering template %q: %w", tmpl, err)
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

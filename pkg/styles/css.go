package styles

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// mergeCSS joins the given sheets in order. With important set, every
// declaration is re-emitted with !important so page styles cannot override
// it; sheets that fail to parse are then passed through unchanged.
func mergeCSS(sheets []string, important bool) string {
	parts := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		sheet = strings.TrimSpace(sheet)
		if sheet == "" {
			continue
		}
		if important {
			sheet = markImportant(sheet)
		}
		parts = append(parts, sheet)
	}
	return strings.Join(parts, "\n")
}

func markImportant(sheet string) string {
	stylesheet, err := parser.Parse(sheet)
	if err != nil {
		debugLog.Warnf("Leaving unparseable CSS as-is: %v", err)
		return sheet
	}
	for _, rule := range stylesheet.Rules {
		markRuleImportant(rule)
	}
	return stylesheet.String()
}

func markRuleImportant(rule *css.Rule) {
	for _, decl := range rule.Declarations {
		decl.Important = true
	}
	for _, nested := range rule.Rules {
		markRuleImportant(nested)
	}
}

// ValidateCSS reports whether css parses. An empty sheet is valid.
func ValidateCSS(sheet string) error {
	if strings.TrimSpace(sheet) == "" {
		return nil
	}
	_, err := parser.Parse(sheet)
	return err
}

// Package text formats chat and label strings the way the host renders them.
package text

import (
	"regexp"
	"strings"
)

// Section is the host's formatting code introducer.
const Section = "§"

var (
	hexAmpersand = regexp.MustCompile(`&#([A-Fa-f0-9]{6})`)
	hexTag       = regexp.MustCompile(`<#([A-Fa-f0-9]{6})>`)
	legacyCode   = regexp.MustCompile(`&([0-9A-Fa-fK-Ok-oRrXx])`)
)

// Color translates "&#RRGGBB", "<#RRGGBB>" and "&c"-style codes into
// section-sign sequences. Hex colors become the §x§R§R§G§G§B§B form.
func Color(s string) string {
	if s == "" {
		return ""
	}
	s = hexAmpersand.ReplaceAllStringFunc(s, func(m string) string {
		return hexCode(hexAmpersand.FindStringSubmatch(m)[1])
	})
	s = hexTag.ReplaceAllStringFunc(s, func(m string) string {
		return hexCode(hexTag.FindStringSubmatch(m)[1])
	})
	return legacyCode.ReplaceAllStringFunc(s, func(m string) string {
		return Section + strings.ToLower(m[1:])
	})
}

// ColorAll colors each line.
func ColorAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Color(l)
	}
	return out
}

func hexCode(hex string) string {
	var b strings.Builder
	b.WriteString(Section + "x")
	for _, r := range strings.ToLower(hex) {
		b.WriteString(Section)
		b.WriteRune(r)
	}
	return b.String()
}

// Strip removes section-sign codes, leaving plain text.
func Strip(s string) string {
	var b strings.Builder
	skip := false
	for _, r := range s {
		if skip {
			skip = false
			continue
		}
		if string(r) == Section {
			skip = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Format substitutes %key% placeholders.
func Format(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "%"+k+"%", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

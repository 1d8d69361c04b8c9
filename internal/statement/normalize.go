package statement

import (
	"regexp"
	"strings"
)

var (
	refNumberRe    = regexp.MustCompile(`\s*#?\d{4,}\S*$`)
	inlineDateRe   = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	channelPrefix  = regexp.MustCompile(`(?i)^(pos|ach|wire|check|chq|card|debit|credit|dd|so)\s+`)
	longNumberRe   = regexp.MustCompile(`\d{6,}`)
	refSuffixRe    = regexp.MustCompile(`(?i)\s+ref\b.*$`)
	trailingNumRe  = regexp.MustCompile(`\s*#?\d{6,}.*$`)
	locationCodeRe = regexp.MustCompile(`\s+[A-Z]{2,3}\d{2,}[A-Z0-9]*$`)
)

// NormalizeDescriptor turns a raw statement description into the matching key
// used for recurrence grouping: lower-cased, reference numbers and inline
// dates stripped, trailing store/location codes removed, whitespace collapsed.
// Detection recall depends directly on how well this collapses the noise banks
// append to otherwise identical descriptions.
func NormalizeDescriptor(raw string) string {
	s := locationCodeRe.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.ToLower(s)
	s = refNumberRe.ReplaceAllString(s, "")
	s = inlineDateRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanMerchantName turns a raw description into a readable display name:
// channel prefixes and reference tails removed, title-cased, capped at 100
// characters. Used by the detector for suggested candidate names.
func CleanMerchantName(raw string) string {
	name := strings.TrimSpace(raw)
	name = channelPrefix.ReplaceAllString(name, "")
	name = refSuffixRe.ReplaceAllString(name, "")
	name = trailingNumRe.ReplaceAllString(name, "")
	name = inlineDateRe.ReplaceAllString(name, "")
	name = longNumberRe.ReplaceAllString(name, "")
	name = whitespaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(raw)
	}
	name = titleCase(name)
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return name
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

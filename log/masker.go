/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Mask is used to mask a secret in strings.
type Mask struct {
	RegExp *regexp.Regexp
	Mask   string
}

// NewMask compiles the mask configuration. It panics if the regular expression is invalid.
func NewMask(cfg MaskConfig) Mask {
	return Mask{regexp.MustCompile(cfg.RegExp), cfg.Mask}
}

// FieldMasker masks values of a single field in different formats.
type FieldMasker struct {
	Field string // lower-cased field name
	Masks []Mask
}

// NewFieldMasker creates FieldMasker from the rule configuration.
func NewFieldMasker(cfg MaskingRuleConfig) FieldMasker {
	fm := FieldMasker{Field: strings.ToLower(cfg.Field), Masks: make([]Mask, 0, len(cfg.Masks)+len(cfg.Formats))}
	for _, maskCfg := range cfg.Masks {
		fm.Masks = append(fm.Masks, NewMask(maskCfg))
	}
	quoted := regexp.QuoteMeta(cfg.Field)
	for _, format := range cfg.Formats {
		switch format {
		case FieldMaskFormatHTTPHeader:
			fm.Masks = append(fm.Masks, NewMask(MaskConfig{`(?i)(` + quoted + `: ).+?(\r?\n|$)`, "${1}***${2}"}))
		case FieldMaskFormatJSON:
			fm.Masks = append(fm.Masks, NewMask(MaskConfig{`(?i)"` + quoted + `"\s*:\s*".*?[^\\]"`, `"` + cfg.Field + `": "***"`}))
		case FieldMaskFormatURLEncoded:
			fm.Masks = append(fm.Masks, NewMask(MaskConfig{`(?i)` + quoted + `\s*=\s*[^&\s]+`, cfg.Field + "=***"}))
		}
	}
	return fm
}

// Masker masks secrets in strings.
// Field names are looked up with a single Aho-Corasick pass, regular expressions run only for the found fields.
type Masker struct {
	FieldMasks []FieldMasker
	matcher    *ahocorasick.Matcher
}

// NewMasker creates a new Masker for the given rules.
func NewMasker(rules []MaskingRuleConfig) *Masker {
	m := &Masker{FieldMasks: make([]FieldMasker, 0, len(rules))}
	fields := make([]string, 0, len(rules))
	for _, rule := range rules {
		fm := NewFieldMasker(rule)
		m.FieldMasks = append(m.FieldMasks, fm)
		fields = append(fields, fm.Field)
	}
	m.matcher = ahocorasick.NewStringMatcher(fields)
	return m
}

// Mask replaces secrets in s.
func (m *Masker) Mask(s string) string {
	if len(m.FieldMasks) == 0 {
		return s
	}
	for _, idx := range m.matcher.Match([]byte(strings.ToLower(s))) {
		for _, rep := range m.FieldMasks[idx].Masks {
			s = rep.RegExp.ReplaceAllString(s, rep.Mask)
		}
	}
	return s
}

// DefaultMasks contains rules for the credentials that usually pass through the console.
var DefaultMasks = []MaskingRuleConfig{
	{
		Field:   "Authorization",
		Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader, FieldMaskFormatJSON},
	},
	{
		Field:   "X-API-Token-Secret",
		Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader, FieldMaskFormatJSON},
	},
	{
		Field:   "password",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "client_secret",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "access_token",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "refresh_token",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
}

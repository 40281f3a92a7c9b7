// Package vocab holds the fixed vocabularies of the recall pipeline: exclusion
// substrings, canonical brand rules, corporate suffixes and the keyword list,
// together with the name normalization and keyword tagging built on them.
package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
)

//go:embed vocabulary.yaml
var embeddedVocabulary []byte

// Keyword is one entry of the tagging vocabulary.
type Keyword struct {
	Text        string `yaml:"text"`
	Description string `yaml:"description"`
}

// BrandRule maps any manufacturer containing one of Match to Brand.
type BrandRule struct {
	Match []string `yaml:"match"`
	Brand string   `yaml:"brand"`
}

// Vocabulary is the complete set of fixed lists. It is read-only after Parse.
type Vocabulary struct {
	ManufacturerExclusions []string    `yaml:"manufacturer_exclusions"`
	ModelExclusions        []string    `yaml:"model_exclusions"`
	BrandRules             []BrandRule `yaml:"brand_rules"`
	CorporateMarkers       []string    `yaml:"corporate_markers"`
	Keywords               []Keyword   `yaml:"keywords"`
}

var (
	greedyParens    = regexp.MustCompile(`\(.*\)`)
	nonGreedyParens = regexp.MustCompile(`\(.*?\)`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

var defaultVocabulary = sync.OnceValues(func() (*Vocabulary, error) {
	return Parse(embeddedVocabulary)
})

// Default returns the vocabulary compiled into the binary.
func Default() (*Vocabulary, error) {
	return defaultVocabulary()
}

// Load reads a vocabulary override from path, or returns Default when path is empty.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("vocab").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return Parse(data)
}

// Parse decodes and validates a YAML vocabulary.
func Parse(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.New(fmt.Errorf("decode vocabulary: %w", err)).
			Component("vocab").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (v *Vocabulary) validate() error {
	if len(v.Keywords) == 0 {
		return errors.Newf("vocabulary has no keywords").
			Component("vocab").
			Category(errors.CategoryValidation).
			Build()
	}
	seen := make(map[string]struct{}, len(v.Keywords))
	for i, kw := range v.Keywords {
		if strings.TrimSpace(kw.Text) == "" {
			return errors.Newf("keyword %d has empty text", i).
				Component("vocab").
				Category(errors.CategoryValidation).
				Build()
		}
		if _, dup := seen[kw.Text]; dup {
			return errors.Newf("duplicate keyword %q", kw.Text).
				Component("vocab").
				Category(errors.CategoryValidation).
				Build()
		}
		seen[kw.Text] = struct{}{}
	}
	for i, rule := range v.BrandRules {
		if rule.Brand == "" || len(rule.Match) == 0 {
			return errors.Newf("brand rule %d needs a brand and at least one match", i).
				Component("vocab").
				Category(errors.CategoryValidation).
				Build()
		}
	}
	return nil
}

// Excluded reports whether a record is a non-passenger vehicle: the manufacturer
// or the model contains an exclusion substring, compared case-insensitively.
func (v *Vocabulary) Excluded(manufacturer, model string) bool {
	return containsAnyFold(manufacturer, v.ManufacturerExclusions) ||
		containsAnyFold(model, v.ModelExclusions)
}

// CanonicalBrand maps a raw manufacturer name to its brand label. The first
// matching rule wins; without a match the name loses its parenthetical part
// and corporate markers.
func (v *Vocabulary) CanonicalBrand(name string) string {
	for _, rule := range v.BrandRules {
		if containsAnyFold(name, rule.Match) {
			return rule.Brand
		}
	}
	cleaned := strings.TrimSpace(greedyParens.ReplaceAllString(name, ""))
	for _, marker := range v.CorporateMarkers {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	return strings.TrimSpace(cleaned)
}

// MatchKeywords returns the vocabulary keywords found in reason, in vocabulary order.
// Matching is case-sensitive and ignores word boundaries.
func (v *Vocabulary) MatchKeywords(reason string) []Keyword {
	var matched []Keyword
	for _, kw := range v.Keywords {
		if strings.Contains(reason, kw.Text) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// CleanModel removes everything from the first "(" to the last ")" and collapses whitespace.
func CleanModel(name string) string {
	stripped := greedyParens.ReplaceAllString(name, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(stripped, " "))
}

// StripParentheticals removes each "(...)" group separately and trims the result.
func StripParentheticals(name string) string {
	return strings.TrimSpace(nonGreedyParens.ReplaceAllString(name, ""))
}

func containsAnyFold(s string, substrings []string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrings {
		if sub != "" && strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// KeywordSeparator joins matched tags.
const KeywordSeparator = "，"

type KeywordRule struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

type KeywordTable struct {
	Tags []KeywordRule `yaml:"tags"`
}

func DefaultKeywordTable() *KeywordTable {
	t, err := ParseKeywordTable(defaultKeywordsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded keyword table: %v", err))
	}
	return t
}

// LoadKeywordTable reads a table from path, or returns the built-in table
// when path is empty.
func LoadKeywordTable(path string) (*KeywordTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultKeywordTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	return ParseKeywordTable(raw)
}

func ParseKeywordTable(raw []byte) (*KeywordTable, error) {
	var t KeywordTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}
	for i, r := range t.Tags {
		if strings.TrimSpace(r.Tag) == "" {
			return nil, fmt.Errorf("keyword table entry %d has no tag", i)
		}
		for j, k := range r.Keywords {
			t.Tags[i].Keywords[j] = strings.ToLower(strings.TrimSpace(k))
		}
	}
	return &t, nil
}

// Annotate returns the tags whose keywords occur in caption, joined by
// KeywordSeparator, or "" when nothing matches. Matching is substring based,
// so "woman" also matches "man".
func (t *KeywordTable) Annotate(caption string) string {
	if t == nil || caption == "" {
		return ""
	}
	lower := strings.ToLower(caption)
	var hits []string
	for _, r := range t.Tags {
		for _, k := range r.Keywords {
			if k != "" && strings.Contains(lower, k) {
				hits = append(hits, r.Tag)
				break
			}
		}
	}
	return strings.Join(hits, KeywordSeparator)
}

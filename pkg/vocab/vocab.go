// Package vocab loads custom vocabulary files. A vocabulary biases the
// recognition engine toward domain terms (names, jargon, acronyms) by
// feeding them to the engine as an initial prompt.
package vocab

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is a set of words and phrases the engine should favor
type Vocabulary struct {
	Words   []string `yaml:"words"`
	Phrases []string `yaml:"phrases"`
}

// Load reads a vocabulary YAML file
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return &v, nil
}

// InitialPrompt joins the vocabulary into the prompt string passed to
// the engine. Empty vocabularies yield an empty prompt.
func (v *Vocabulary) InitialPrompt() string {
	terms := make([]string, 0, len(v.Words)+len(v.Phrases))
	for _, w := range v.Words {
		if w = strings.TrimSpace(w); w != "" {
			terms = append(terms, w)
		}
	}
	for _, p := range v.Phrases {
		if p = strings.TrimSpace(p); p != "" {
			terms = append(terms, p)
		}
	}
	return strings.Join(terms, " ")
}

package accent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfilesYAML []byte

// RegionProfile is the static description of one dialect region together with
// the weights used to score text against it.
type RegionProfile struct {
	Name              string             `yaml:"name"`
	Baseline          float64            `yaml:"baseline"`
	Signatures        []Signature        `yaml:"signatures"`
	Vocabulary        []string           `yaml:"vocabulary"`
	VocabularyWeight  float64            `yaml:"vocabulary_weight"`
	Expressions       []string           `yaml:"expressions"`
	ExpressionWeight  float64            `yaml:"expression_weight"`
	ParticleFrequency *ParticleFrequency `yaml:"particle_frequency"`
	PhoneticPatterns  []string           `yaml:"phonetic_patterns"`
	Info              RegionInfo         `yaml:"info"`
}

// Signature is a group of strong markers (place names, signature phrases).
// The weight is added once if any pattern in the group occurs.
type Signature struct {
	Patterns []string `yaml:"patterns"`
	Weight   float64  `yaml:"weight"`
}

// ParticleFrequency rewards repeated sentence-final particles.
type ParticleFrequency struct {
	Particles     []string `yaml:"particles"`
	PerOccurrence float64  `yaml:"per_occurrence"`
	Cap           float64  `yaml:"cap"`
}

// RegionInfo is the learner-facing description of a region.
type RegionInfo struct {
	Name            string   `json:"name" yaml:"display_name"`
	Description     string   `json:"description" yaml:"description"`
	Characteristics []string `json:"characteristics" yaml:"characteristics"`
}

type profileFile struct {
	Regions []RegionProfile `yaml:"regions"`
}

// DefaultProfiles returns the embedded north/central/south profiles.
func DefaultProfiles() ([]RegionProfile, error) {
	return ParseProfiles(defaultProfilesYAML)
}

// LoadProfiles reads region profiles from a YAML file.
func LoadProfiles(path string) ([]RegionProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accent profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes and validates region profiles from YAML.
func ParseProfiles(data []byte) ([]RegionProfile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse accent profiles: %w", err)
	}
	for i := range file.Regions {
		file.Regions[i].normalize()
	}
	if err := validateProfiles(file.Regions); err != nil {
		return nil, err
	}
	return file.Regions, nil
}

// normalize brings every pattern into the same form as classified text.
// Leading and trailing spaces are significant (" ạ") and kept.
func (p *RegionProfile) normalize() {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	lowerAll := func(in []string) {
		for i, s := range in {
			in[i] = norm.NFC.String(strings.ToLower(s))
		}
	}
	lowerAll(p.Vocabulary)
	lowerAll(p.Expressions)
	for i := range p.Signatures {
		lowerAll(p.Signatures[i].Patterns)
	}
	if p.ParticleFrequency != nil {
		lowerAll(p.ParticleFrequency.Particles)
	}
}

func validateProfiles(profiles []RegionProfile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("accent profiles: no regions defined")
	}
	seen := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if p.Name == "" {
			return fmt.Errorf("accent profiles: region without name")
		}
		if seen[p.Name] {
			return fmt.Errorf("accent profiles: duplicate region %q", p.Name)
		}
		seen[p.Name] = true

		patterns := append(append([]string{}, p.Vocabulary...), p.Expressions...)
		for _, s := range p.Signatures {
			if s.Weight < 0 {
				return fmt.Errorf("accent profiles: %s: negative signature weight", p.Name)
			}
			patterns = append(patterns, s.Patterns...)
		}
		if pf := p.ParticleFrequency; pf != nil {
			if pf.PerOccurrence < 0 || pf.Cap < 0 {
				return fmt.Errorf("accent profiles: %s: negative particle weight", p.Name)
			}
			patterns = append(patterns, pf.Particles...)
		}
		for _, pat := range patterns {
			if pat == "" {
				return fmt.Errorf("accent profiles: %s: empty pattern", p.Name)
			}
		}
		if p.Baseline < 0 || p.VocabularyWeight < 0 || p.ExpressionWeight < 0 {
			return fmt.Errorf("accent profiles: %s: negative weight", p.Name)
		}
	}
	if !seen[FallbackRegion] {
		return fmt.Errorf("accent profiles: fallback region %q missing", FallbackRegion)
	}
	return nil
}

type ruleKind int

const (
	// matchAny adds the weight once when any pattern occurs.
	matchAny ruleKind = iota
	// matchEach adds the weight for every pattern that occurs.
	matchEach
	// countOccurrences adds the weight per occurrence, up to cap.
	countOccurrences
)

type rule struct {
	kind     ruleKind
	patterns []string
	weight   float64
	cap      float64
}

func (r rule) apply(text string) float64 {
	switch r.kind {
	case matchAny:
		for _, p := range r.patterns {
			if strings.Contains(text, p) {
				return r.weight
			}
		}
	case matchEach:
		var score float64
		for _, p := range r.patterns {
			if strings.Contains(text, p) {
				score += r.weight
			}
		}
		return score
	case countOccurrences:
		n := 0
		for _, p := range r.patterns {
			n += strings.Count(text, p)
		}
		if n > 0 {
			return min(r.cap, float64(n)*r.weight)
		}
	}
	return 0
}

// rules flattens the profile into its ordered scoring table.
func (p RegionProfile) rules() []rule {
	var rules []rule
	for _, s := range p.Signatures {
		rules = append(rules, rule{kind: matchAny, patterns: s.Patterns, weight: s.Weight})
	}
	if p.VocabularyWeight > 0 {
		rules = append(rules, rule{kind: matchEach, patterns: p.Vocabulary, weight: p.VocabularyWeight})
	}
	if p.ExpressionWeight > 0 {
		rules = append(rules, rule{kind: matchEach, patterns: p.Expressions, weight: p.ExpressionWeight})
	}
	if pf := p.ParticleFrequency; pf != nil {
		rules = append(rules, rule{kind: countOccurrences, patterns: pf.Particles, weight: pf.PerOccurrence, cap: pf.Cap})
	}
	return rules
}

package pronunciation

import (
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/pmezard/go-difflib/difflib"
)

// ErrorAnalysis is the word-level breakdown of a scored attempt.
type ErrorAnalysis struct {
	MissingWords     []string       `json:"missing_words"`
	ExtraWords       []string       `json:"extra_words"`
	SubstitutedWords []Substitution `json:"substituted_words"`
	SoundConfusions  []string       `json:"sound_confusions"`
}

// Substitution pairs a target word with what was heard in its place.
type Substitution struct {
	Target      string  `json:"target"`
	Transcribed string  `json:"transcribed"`
	Similarity  float64 `json:"similarity"`
}

func emptyAnalysis() ErrorAnalysis {
	return ErrorAnalysis{
		MissingWords:     []string{},
		ExtraWords:       []string{},
		SubstitutedWords: []Substitution{},
		SoundConfusions:  []string{},
	}
}

// difficultSound is a consonant cluster learners often get wrong, with the
// substitutes they typically produce instead.
type difficultSound struct {
	cluster     string
	substitutes []string
}

var difficultSounds = []difficultSound{
	{"ng", []string{"n", "g", ""}},
	{"nh", []string{"n", "ni", "ny"}},
	{"tr", []string{"ch", "t", "r"}},
	{"gi", []string{"z", "y", "d"}},
	{"qu", []string{"k", "kw", "g"}},
}

const (
	soundHitBonus     = 5.0
	soundPartialBonus = 2.0
	maxSoundBonus     = 20.0
)

// soundBonus credits difficult clusters of the target that survived
// transcription, or were at least approximated.
func soundBonus(target, transcribed string) float64 {
	var bonus float64
	for _, s := range difficultSounds {
		if !strings.Contains(target, s.cluster) {
			continue
		}
		if strings.Contains(transcribed, s.cluster) {
			bonus += soundHitBonus
			continue
		}
		for _, sub := range s.substitutes {
			if strings.Contains(transcribed, sub) {
				bonus += soundPartialBonus
				break
			}
		}
	}
	return min(maxSoundBonus, bonus)
}

type confusablePair struct {
	a, b        string
	description string
}

var confusablePairs = []confusablePair{
	{"tr", "ch", "Nhầm lẫn giữa âm 'tr' và 'ch'"},
	{"gi", "z", "Nhầm lẫn giữa âm 'gi' và 'z'"},
	{"ng", "n", "Nhầm lẫn giữa âm cuối 'ng' và 'n'"},
	{"nh", "n", "Nhầm lẫn giữa âm 'nh' và 'n'"},
	{"qu", "k", "Nhầm lẫn giữa âm 'qu' và 'k'"},
}

// hasCluster reports whether cluster occurs in text on its own. When the
// cluster is a prefix of its partner (n inside ng), occurrences belonging to
// the partner do not count.
func hasCluster(text, cluster, partner string) bool {
	if len(partner) > len(cluster) && strings.Contains(partner, cluster) {
		text = strings.ReplaceAll(text, partner, " ")
	}
	return strings.Contains(text, cluster)
}

func soundConfusions(target, transcribed string) []string {
	confusions := []string{}
	if target == transcribed {
		return confusions
	}
	for _, p := range confusablePairs {
		forward := hasCluster(target, p.a, p.b) && hasCluster(transcribed, p.b, p.a)
		backward := hasCluster(target, p.b, p.a) && hasCluster(transcribed, p.a, p.b)
		if forward || backward {
			confusions = append(confusions, p.description)
		}
	}
	return confusions
}

// analyze aligns the word sequences and returns the error breakdown plus the
// number of target words matched exactly.
func analyze(target, transcribed string, targetWords, transcribedWords []string) (ErrorAnalysis, int) {
	analysis := emptyAnalysis()
	matched := 0

	m := difflib.NewMatcher(targetWords, transcribedWords)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			matched += op.I2 - op.I1
		case 'd':
			analysis.MissingWords = append(analysis.MissingWords, targetWords[op.I1:op.I2]...)
		case 'i':
			analysis.ExtraWords = append(analysis.ExtraWords, transcribedWords[op.J1:op.J2]...)
		case 'r':
			n := min(op.I2-op.I1, op.J2-op.J1)
			for k := 0; k < n; k++ {
				t, h := targetWords[op.I1+k], transcribedWords[op.J1+k]
				analysis.SubstitutedWords = append(analysis.SubstitutedWords, Substitution{
					Target:      t,
					Transcribed: h,
					Similarity:  round(matchr.JaroWinkler(t, h, false), 3),
				})
			}
		}
	}

	analysis.SoundConfusions = soundConfusions(target, transcribed)
	return analysis, matched
}

package accent

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewDefault(zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	return c
}

func TestClassifyEmptyInput(t *testing.T) {
	c := newTestClassifier(t)
	for _, in := range []string{"", "   ", "\n\t"} {
		res := c.Classify(in)
		if res.Region != "north" || res.Confidence != 0.5 {
			t.Fatalf("Classify(%q) = %s/%v", in, res.Region, res.Confidence)
		}
		want := map[string]float64{"north": 0.5, "central": 0.25, "south": 0.25}
		if !reflect.DeepEqual(res.Scores, want) {
			t.Fatalf("scores = %v", res.Scores)
		}
		if res.Fallback != FallbackEmptyInput {
			t.Fatalf("fallback = %q", res.Fallback)
		}
		if len(res.Indicators) != 1 || res.Indicators[0] != "default: standard Vietnamese" {
			t.Fatalf("indicators = %v", res.Indicators)
		}
	}
}

func TestClassifyRecoversFromInternalFault(t *testing.T) {
	// A classifier built without New has no profiles to pick a winner from.
	var c Classifier
	res := c.Classify("tôi ở sài gòn nè dạ")

	if res.Fallback != FallbackInternalError {
		t.Fatalf("fallback = %q", res.Fallback)
	}
	if res.Region != FallbackRegion || res.Confidence != 0.5 {
		t.Fatalf("result = %s/%v", res.Region, res.Confidence)
	}
	want := map[string]float64{"north": 0.5, "central": 0.25, "south": 0.25}
	if !reflect.DeepEqual(res.Scores, want) {
		t.Fatalf("scores = %v", res.Scores)
	}
}

func TestClassifySouthern(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify("Tôi ở Sài Gòn nè dạ")

	if res.Region != "south" {
		t.Fatalf("region = %s, scores %v", res.Region, res.Scores)
	}
	if res.Confidence <= 0.3 || res.Confidence > 1 {
		t.Fatalf("confidence = %v", res.Confidence)
	}
	if res.Scores["south"] != 1.0 {
		t.Fatalf("south score = %v", res.Scores["south"])
	}
	if res.Scores["north"] != 0.4 {
		t.Fatalf("north score = %v", res.Scores["north"])
	}
	if len(res.Indicators) == 0 || res.Indicators[0] != "vocabulary: sài gòn" {
		t.Fatalf("indicators = %v", res.Indicators)
	}
	if res.Fallback != "" {
		t.Fatalf("unexpected fallback %q", res.Fallback)
	}
	if res.TextAnalyzed != "Tôi ở Sài Gòn nè dạ" {
		t.Fatalf("text_analyzed = %q", res.TextAnalyzed)
	}
}

func TestEvidenceMatchesWholeSyllables(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify("tôi ở sài gòn nè dạ")

	want := []string{"vocabulary: sài gòn", "expression: dạ"}
	if !reflect.DeepEqual(res.Indicators, want) {
		t.Fatalf("indicators = %v, want %v", res.Indicators, want)
	}

	res = c.Classify("chào đỏ, mình ở huế.")
	if len(res.Indicators) < 2 || res.Indicators[1] != "vocabulary: huế" {
		t.Fatalf("punctuated indicators = %v", res.Indicators)
	}

	res = c.Classify("sài gòn vui à")
	if !reflect.DeepEqual(res.Indicators, []string{"vocabulary: sài gòn", "expression: à"}) {
		t.Fatalf("standalone particle indicators = %v", res.Indicators)
	}
}

func TestClassifyCentral(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify("chào đỏ, mình ở huế")
	if res.Region != "central" {
		t.Fatalf("region = %s, scores %v", res.Region, res.Scores)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want capped 1.0", res.Confidence)
	}
}

func TestClassifyNeutralTextStaysNorth(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify("xin chào bạn")
	if res.Region != "north" || res.Confidence != 0.4 {
		t.Fatalf("got %s/%v", res.Region, res.Confidence)
	}
	if res.Fallback != "" {
		t.Fatalf("baseline north is not a fallback, got %q", res.Fallback)
	}
	if res.Indicators == nil || len(res.Indicators) != 0 {
		t.Fatalf("indicators = %#v", res.Indicators)
	}
}

func TestClassifyParticleCap(t *testing.T) {
	c := newTestClassifier(t)
	// six particles would be 0.6 uncapped
	res := c.Classify("dạ dạ dạ nhé nhé nhé")
	if got := res.Scores["south"]; got != 0.4 {
		t.Fatalf("south = %v, want 0.4", got)
	}
}

func lowSignalProfiles() []RegionProfile {
	return []RegionProfile{
		{Name: "north", Vocabulary: []string{"hà nội"}, VocabularyWeight: 0.2},
		{Name: "south", Vocabulary: []string{"sài gòn"}, VocabularyWeight: 0.2},
	}
}

func TestClassifyLowSignal(t *testing.T) {
	c, err := New(lowSignalProfiles(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	res := c.Classify("sài gòn")
	if res.Region != "north" || res.Confidence != 0.5 {
		t.Fatalf("got %s/%v", res.Region, res.Confidence)
	}
	if res.Fallback != FallbackLowSignal {
		t.Fatalf("fallback = %q", res.Fallback)
	}
	if res.Scores["south"] != 0.2 {
		t.Fatalf("raw scores must be kept, got %v", res.Scores)
	}
}

func TestClassifyTieGoesToEarlierProfile(t *testing.T) {
	profiles := []RegionProfile{
		{Name: "north", Baseline: 0.5},
		{Name: "central", Baseline: 0.5},
	}
	c, err := New(profiles, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Classify("bất kỳ").Region; got != "north" {
		t.Fatalf("region = %s", got)
	}
}

func TestClassifyTruncatesAnalyzedText(t *testing.T) {
	c := newTestClassifier(t)
	long := ""
	for i := 0; i < 30; i++ {
		long += "việt "
	}
	res := c.Classify(long)
	runes := []rune(res.TextAnalyzed)
	if len(runes) != maxAnalyzedRunes+3 || string(runes[maxAnalyzedRunes:]) != "..." {
		t.Fatalf("text_analyzed = %q", res.TextAnalyzed)
	}
}

func TestIndicatorLimit(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify("cơm chiều xe đạp áo thun toa lét sài gòn miền nam tphcm")
	if res.Region != "south" {
		t.Fatalf("region = %s", res.Region)
	}
	if len(res.Indicators) != maxIndicators {
		t.Fatalf("indicators = %v", res.Indicators)
	}
}

func TestRegionInfo(t *testing.T) {
	c := newTestClassifier(t)
	if got := c.RegionInfo("south").Name; got != "Miền Nam" {
		t.Fatalf("south name = %q", got)
	}
	if got := c.RegionInfo(" North ").Name; got != "Miền Bắc" {
		t.Fatalf("north name = %q", got)
	}
	unknown := c.RegionInfo("west")
	if unknown.Name != "Unknown" || unknown.Description != "Không xác định được vùng miền" {
		t.Fatalf("unknown = %+v", unknown)
	}
}

func TestParseProfilesValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "regions: []"},
		{"no fallback region", "regions:\n  - name: south\n"},
		{"duplicate", "regions:\n  - name: north\n  - name: north\n"},
		{"empty pattern", "regions:\n  - name: north\n    vocabulary: ['']\n"},
		{"negative weight", "regions:\n  - name: north\n    baseline: -1\n"},
		{"malformed", "regions: {"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseProfiles([]byte(tc.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadProfilesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	data := "regions:\n  - name: North\n    baseline: 0.9\n    info:\n      display_name: Bắc\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	c, err := New(profiles, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	res := c.Classify("chào")
	if res.Region != "north" || res.Confidence != 0.9 {
		t.Fatalf("got %s/%v", res.Region, res.Confidence)
	}
	if c.RegionInfo("north").Name != "Bắc" {
		t.Fatal("display name not loaded")
	}
}

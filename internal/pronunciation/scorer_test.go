package pronunciation

import (
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newScorer() *Scorer {
	return NewScorer(zerolog.Nop())
}

func TestScorePerfectMatch(t *testing.T) {
	res := newScorer().Score("Xin chào!", "xin chào")

	if res.WordAccuracy != 100 || res.OverallScore != 100 {
		t.Fatalf("word=%v overall=%v", res.WordAccuracy, res.OverallScore)
	}
	if !reflect.DeepEqual(res.ErrorAnalysis, emptyAnalysis()) {
		t.Fatalf("analysis = %+v", res.ErrorAnalysis)
	}
	if res.Accuracy != "2/2 từ chính xác" {
		t.Fatalf("accuracy = %q", res.Accuracy)
	}
	if !strings.HasPrefix(res.Feedback, "🎉") {
		t.Fatalf("feedback = %q", res.Feedback)
	}
	if !reflect.DeepEqual(res.Suggestions, genericSuggestions) {
		t.Fatalf("suggestions = %v", res.Suggestions)
	}
	if res.TargetText != "Xin chào!" || res.TranscribedText != "xin chào" {
		t.Fatal("inputs must be echoed verbatim")
	}
	if res.WordErrorRate != 0 || res.CharErrorRate != 0 {
		t.Fatalf("wer=%v cer=%v", res.WordErrorRate, res.CharErrorRate)
	}
}

func TestScoreMissingWord(t *testing.T) {
	res := newScorer().Score("xin chào bạn", "xin chào")

	if !reflect.DeepEqual(res.ErrorAnalysis.MissingWords, []string{"bạn"}) {
		t.Fatalf("missing = %v", res.ErrorAnalysis.MissingWords)
	}
	if res.OverallScore >= 100 {
		t.Fatalf("overall = %v", res.OverallScore)
	}
	if res.WordAccuracy != 80 {
		t.Fatalf("word accuracy = %v, want 80", res.WordAccuracy)
	}
	if len(res.Suggestions) == 0 || res.Suggestions[0] != "Hãy nhớ phát âm các từ: bạn" {
		t.Fatalf("suggestions = %v", res.Suggestions)
	}
	if res.Accuracy != "2/3 từ chính xác" {
		t.Fatalf("accuracy = %q", res.Accuracy)
	}
}

func TestScoreEmptyInput(t *testing.T) {
	s := newScorer()
	cases := [][2]string{
		{"", "xin chào"},
		{"xin chào", ""},
		{"  ", "..."},
		{"?!", "xin chào"},
	}
	for _, c := range cases {
		res := s.Score(c[0], c[1])
		if res.OverallScore != 0 || res.WordAccuracy != 0 || res.PhoneticAccuracy != 0 {
			t.Fatalf("Score(%q, %q) not zero: %+v", c[0], c[1], res)
		}
		if !res.Empty() || res.Feedback != "❌ "+MsgMissingText {
			t.Fatalf("feedback = %q", res.Feedback)
		}
		if !reflect.DeepEqual(res.Suggestions, []string{retrySuggestion}) {
			t.Fatalf("suggestions = %v", res.Suggestions)
		}
	}
}

func TestScoreRecoversFromInternalFault(t *testing.T) {
	faulty := newScorer()
	faulty.ratio = func(a, b []string) float64 { panic("matcher exploded") }

	scorers := map[string]*Scorer{
		"zero value":     {},
		"faulty matcher": faulty,
	}
	for name, s := range scorers {
		t.Run(name, func(t *testing.T) {
			res := s.Score("xin chào", "xin chào")
			if res.OverallScore != 0 || res.WordAccuracy != 0 || res.PhoneticAccuracy != 0 || res.LengthScore != 0 {
				t.Fatalf("scores not zero: %+v", res)
			}
			if res.Feedback != "❌ "+MsgScoringFailed || !strings.HasPrefix(res.Feedback, "❌ Không thể chấm điểm") {
				t.Fatalf("feedback = %q", res.Feedback)
			}
			if !res.Empty() || len(res.ErrorAnalysis.MissingWords) != 0 {
				t.Fatalf("res = %+v", res)
			}
		})
	}
}

func TestScoreSoundConfusion(t *testing.T) {
	res := newScorer().Score("trường", "chường")
	found := false
	for _, c := range res.ErrorAnalysis.SoundConfusions {
		if strings.Contains(c, "'tr'") && strings.Contains(c, "'ch'") {
			found = true
		}
	}
	if !found {
		t.Fatalf("confusions = %v", res.ErrorAnalysis.SoundConfusions)
	}
	if len(res.ErrorAnalysis.SubstitutedWords) != 1 {
		t.Fatalf("substitutions = %+v", res.ErrorAnalysis.SubstitutedWords)
	}
}

func TestSoundConfusionIgnoresClusterPrefix(t *testing.T) {
	got := soundConfusions("đang học", "đan học")
	if len(got) != 1 || !strings.Contains(got[0], "'ng'") {
		t.Fatalf("confusions = %v", got)
	}
	if got := soundConfusions("trường", "trường"); len(got) != 0 {
		t.Fatalf("identical text produced %v", got)
	}
}

func TestScoreLengthMismatch(t *testing.T) {
	target := "một hai ba bốn năm sáu bảy tám chín mười"
	res := newScorer().Score(target, "một hai")
	if res.LengthScore != 20 {
		t.Fatalf("length score = %v, want 20", res.LengthScore)
	}
	if res.OverallScore >= 60 {
		t.Fatalf("overall = %v should be dragged down", res.OverallScore)
	}
	if len(res.ErrorAnalysis.MissingWords) != 8 {
		t.Fatalf("missing = %v", res.ErrorAnalysis.MissingWords)
	}
}

func TestScoreReorderingIsPenalized(t *testing.T) {
	res := newScorer().Score("tôi yêu bạn", "bạn yêu tôi")
	if res.WordAccuracy >= 100 {
		t.Fatalf("word accuracy = %v", res.WordAccuracy)
	}
}

func TestPhoneticAccuracyMayExceed100(t *testing.T) {
	res := newScorer().Score("trường", "trường")
	if res.PhoneticAccuracy != 110 {
		t.Fatalf("phonetic = %v, want 110", res.PhoneticAccuracy)
	}
	if res.OverallScore != 100 {
		t.Fatalf("overall = %v, want clamped 100", res.OverallScore)
	}
}

func TestSoundBonus(t *testing.T) {
	tests := []struct {
		target, transcribed string
		want                float64
	}{
		{"trường", "trường", 10},
		{"tre", "che", 2},
		{"xin chào", "xin chào", 0},
		// "" is a documented substitute for ng, so any attempt gets partial credit
		{"ngủ", "ủ", 2},
		{"trong nhà giữa quê", "trong nhà giữa quê", 20},
	}
	for _, tc := range tests {
		if got := soundBonus(tc.target, tc.transcribed); got != tc.want {
			t.Errorf("soundBonus(%q, %q) = %v, want %v", tc.target, tc.transcribed, got, tc.want)
		}
	}
}

func TestScoreSubstitutionSimilarity(t *testing.T) {
	res := newScorer().Score("tôi ăn cơm", "tôi ăn cam")
	subs := res.ErrorAnalysis.SubstitutedWords
	if len(subs) != 1 || subs[0].Target != "cơm" || subs[0].Transcribed != "cam" {
		t.Fatalf("substitutions = %+v", subs)
	}
	if subs[0].Similarity <= 0 || subs[0].Similarity >= 1 {
		t.Fatalf("similarity = %v", subs[0].Similarity)
	}
	if res.WordErrorRate <= 0 {
		t.Fatalf("wer = %v", res.WordErrorRate)
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	s := newScorer()
	a := s.Score("chúng tôi đi học", "chúng tôi đi hoc")
	b := s.Score("chúng tôi đi học", "chúng tôi đi hoc")
	if !reflect.DeepEqual(a, b) {
		t.Fatal("scoring the same pair twice differed")
	}
}

func TestScoreBounds(t *testing.T) {
	s := newScorer()
	pairs := [][2]string{
		{"xin chào", "tạm biệt mọi người ở đây"},
		{"quê hương", "kê hương"},
		{"a", "b"},
	}
	for _, p := range pairs {
		res := s.Score(p[0], p[1])
		if res.OverallScore < 0 || res.OverallScore > 100 {
			t.Fatalf("Score(%q, %q) = %v", p[0], p[1], res.OverallScore)
		}
		if len(res.Suggestions) > maxSuggestions {
			t.Fatalf("too many suggestions: %v", res.Suggestions)
		}
	}
}

func TestFeedbackTiers(t *testing.T) {
	tests := []struct {
		score, word, phonetic float64
		want                  string
	}{
		{95, 100, 100, "🎉 Xuất sắc! Phát âm hoàn hảo, rõ ràng và chuẩn xác!"},
		{90, 95, 95, "👏 Rất tốt! Phát âm rõ ràng."},
		{85, 85, 95, "👏 Rất tốt! Phát âm rõ ràng. Chú ý phát âm từng từ rõ hơn."},
		{78, 70, 90, "👍 Khá tốt! Có thể cải thiện: độ chính xác từ vựng."},
		{78, 70, 70, "👍 Khá tốt! Có thể cải thiện: độ chính xác từ vựng, phát âm các âm thanh."},
		{60, 60, 60, "📈 Đang tiến bộ! Hãy nói chậm hơn và rõ từng âm tiết. Thử luyện tập thêm với từng từ riêng lẻ."},
		{40, 40, 40, "💪 Cố lên! Hãy nghe kỹ mẫu phát âm và luyện tập từng âm cơ bản. Nói chậm và rõ ràng."},
		{39.9, 0, 0, "🎯 Bắt đầu lại! Hãy nghe mẫu phát âm nhiều lần, sau đó thử nói từng từ một cách chậm rãi."},
	}
	for _, tc := range tests {
		if got := feedback(tc.score, tc.word, tc.phonetic); got != tc.want {
			t.Errorf("feedback(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestSuggestionsPriorityAndLimit(t *testing.T) {
	a := emptyAnalysis()
	a.MissingWords = []string{"bạn", "ơi"}
	a.SoundConfusions = []string{"Nhầm lẫn giữa âm 'tr' và 'ch'"}
	a.SubstitutedWords = []Substitution{{Target: "cơm", Transcribed: "cam"}}

	got := suggestions(a)
	want := []string{
		"Hãy nhớ phát âm các từ: bạn, ơi",
		"Luyện tập phân biệt: Nhầm lẫn giữa âm 'tr' và 'ch'",
		"Chú ý phát âm chính xác các từ bị nhầm lẫn",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("suggestions = %v", got)
	}
}

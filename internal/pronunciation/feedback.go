package pronunciation

import "strings"

const maxSuggestions = 3

var genericSuggestions = []string{
	"Nói chậm và rõ từng âm tiết",
	"Chú ý thanh điệu của từng từ",
	"Luyện tập với từng từ riêng lẻ trước",
}

// feedback picks the tier message for an unrounded composite score.
func feedback(score, wordAcc, phoneticAcc float64) string {
	switch {
	case score >= 95:
		return "🎉 Xuất sắc! Phát âm hoàn hảo, rõ ràng và chuẩn xác!"
	case score >= 85:
		msg := "👏 Rất tốt! Phát âm rõ ràng."
		if wordAcc < 90 {
			msg += " Chú ý phát âm từng từ rõ hơn."
		}
		return msg
	case score >= 75:
		var issues []string
		if wordAcc < 80 {
			issues = append(issues, "độ chính xác từ vựng")
		}
		if phoneticAcc < 80 {
			issues = append(issues, "phát âm các âm thanh")
		}
		return "👍 Khá tốt! Có thể cải thiện: " + strings.Join(issues, ", ") + "."
	case score >= 60:
		return "📈 Đang tiến bộ! Hãy nói chậm hơn và rõ từng âm tiết. Thử luyện tập thêm với từng từ riêng lẻ."
	case score >= 40:
		return "💪 Cố lên! Hãy nghe kỹ mẫu phát âm và luyện tập từng âm cơ bản. Nói chậm và rõ ràng."
	default:
		return "🎯 Bắt đầu lại! Hãy nghe mẫu phát âm nhiều lần, sau đó thử nói từng từ một cách chậm rãi."
	}
}

// suggestions derives practice hints from the analysis in priority order:
// missing words, sound confusions, substitutions.
func suggestions(a ErrorAnalysis) []string {
	var out []string
	if len(a.MissingWords) > 0 {
		out = append(out, "Hãy nhớ phát âm các từ: "+strings.Join(a.MissingWords, ", "))
	}
	if len(a.SoundConfusions) > 0 {
		out = append(out, "Luyện tập phân biệt: "+strings.Join(a.SoundConfusions, ", "))
	}
	if len(a.SubstitutedWords) > 0 {
		out = append(out, "Chú ý phát âm chính xác các từ bị nhầm lẫn")
	}
	if len(out) == 0 {
		out = append(out, genericSuggestions...)
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

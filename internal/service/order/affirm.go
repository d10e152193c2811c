package order

import "strings"

var affirmations = foldAll(
	"نعم", "ايوه", "ايوا", "أيوة", "اه", "آه", "أكد", "اكد", "أكدي", "تأكيد", "أكيد",
	"موافق", "موافقة", "تمام", "أوكي", "ماشي", "يلا", "اطلب", "اطلبه",
	"yes", "yeah", "yep", "yup", "ok", "okay", "sure", "confirm", "confirmed", "go ahead",
)

var negations = foldAll(
	"لا", "لأ", "مش", "بلاش", "الغي", "إلغاء", "استنى", "لسه",
	"no", "not", "don't", "dont", "cancel", "wait",
)

func foldAll(list ...string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = fold(s)
	}
	return out
}

// IsAffirmation reports whether the message explicitly agrees to place the
// order. Questions and messages carrying a negation never count.
func IsAffirmation(message string) bool {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" || strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "؟") {
		return false
	}

	folded := fold(trimmed)
	for _, n := range negations {
		if containsWord(folded, n) {
			return false
		}
	}
	for _, a := range affirmations {
		if containsWord(folded, a) {
			return true
		}
	}
	return false
}

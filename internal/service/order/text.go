package order

import (
	"strings"
	"unicode"
)

var digitFolder = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

var letterFolder = strings.NewReplacer(
	"أ", "ا", "إ", "ا", "آ", "ا",
	"ة", "ه", "ى", "ي",
	"ـ", "",
)

// foldDigits maps Arabic-Indic and Persian digits to ASCII.
func foldDigits(s string) string {
	return digitFolder.Replace(s)
}

// fold lowercases and collapses the Arabic letter variants customers mix
// freely, so vocabulary lookups match any spelling.
func fold(s string) string {
	return letterFolder.Replace(strings.ToLower(foldDigits(s)))
}

// containsWord reports whether phrase occurs in text on word boundaries.
// A one-letter Arabic proclitic (ب، و، ف، ل) may precede the phrase.
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(phrase)
		if leftBoundary(text[:start]) && rightBoundary(text[end:]) {
			return true
		}
		offset = start + 1
	}
	return false
}

func leftBoundary(before string) bool {
	if before == "" {
		return true
	}
	r := []rune(before)
	last := r[len(r)-1]
	if !isWordRune(last) {
		return true
	}
	if strings.ContainsRune("بوفل", last) {
		return len(r) == 1 || !isWordRune(r[len(r)-2])
	}
	return false
}

func rightBoundary(after string) bool {
	for _, r := range after {
		return !isWordRune(r)
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !isWordRune(r) && r != '\''
	})
}

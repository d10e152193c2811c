package order

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/tuskagent/internal/core"
)

// Hints are high-confidence field candidates found in the latest message.
// Every field is optional; an empty string means no match.
type Hints struct {
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Size    string `json:"size,omitempty"`
	Color   string `json:"color,omitempty"`
	Name    string `json:"name,omitempty"`
}

func (h Hints) Empty() bool {
	return h == Hints{}
}

const minAddressRunes = 8

var (
	phonePattern      = regexp.MustCompile(`(?:(?:\+|00)?20[\s\-]?)?0?1[0125](?:[\s\-]?\d){8}`)
	validPhone        = regexp.MustCompile(`^01[0125]\d{8}$`)
	numericSizeRe     = regexp.MustCompile(`(?:مقاس|المقاس|سايز|size)\s*[:\-]?\s*(\d{2})\b`)
	addressLabelRe    = regexp.MustCompile(`(?i)(?:العنوان|عنواني|عنوان|address)\s*(?:(?:هو|is)\s+)?[:\-]?\s*([^\n]+)`)
	streetAnchorRe    = regexp.MustCompile(`(?i)((?:شارع|ش\.|street|st\.|عمارة|عماره|برج|شقة|شقه|الدور)[^\n]*)`)
	addressCutRe      = regexp.MustCompile(`(?i)(?:[،,.]?\s*(?:رقمي|رقم تليفوني|تليفوني|موبايلي|رقم الموبايل|اسمي|الاسم|phone|my name)).*$`)
	nameLabelRe       = regexp.MustCompile(`(?i)(?:(?:انا |أنا )?[اإ]سمي|ال[اإ]سم\s*[:\-]|my name is|name\s*:)\s*(?:(?:هو|is)\s+)?[:\-]?\s*(\p{L}+(?:\s+\p{L}+){0,3})`)
	segmentSplitter   = regexp.MustCompile(`[\n،,]+`)
	addressMarkerWord = []string{"عماره", "شقه", "برج", "بجوار", "امام", "خلف", "الدور", "ميدان", "block", "building", "apt"}
)

var nameStopWords = map[string]struct{}{
	"و": {}, "رقمي": {}, "رقم": {}, "عنواني": {}, "العنوان": {}, "من": {}, "في": {},
	"ساكن": {}, "وساكن": {}, "ورقمي": {}, "وعنواني": {}, "عايز": {}, "عاوز": {}, "وعايز": {}, "تليفوني": {}, "موبايلي": {},
	"and": {}, "my": {}, "phone": {}, "address": {}, "from": {}, "i": {}, "want": {},
}

type vocabEntry struct {
	folded    string
	canonical string
}

var sizeWords = buildVocab(map[string][]string{
	"XS":  {"اكس سمول", "اكس سمال"},
	"S":   {"سمول", "سمال", "small"},
	"M":   {"ميديم", "ميديام", "ميديوم", "medium"},
	"L":   {"لارج", "large"},
	"XL":  {"اكس لارج", "x large"},
	"XXL": {"دبل اكس لارج", "اكس اكس لارج", "2 اكس لارج"},
})

var sizeLetters = map[string]string{
	"xs": "XS", "s": "S", "m": "M", "l": "L", "xl": "XL",
	"xxl": "XXL", "2xl": "XXL", "xxxl": "XXXL", "3xl": "XXXL",
}

var colorWords = buildVocab(map[string][]string{
	"أحمر":     {"أحمر", "احمر", "حمراء", "حمرا"},
	"أزرق":     {"أزرق", "ازرق", "زرقاء", "زرقا"},
	"أسود":     {"أسود", "اسود", "سوداء", "سودا"},
	"أبيض":     {"أبيض", "ابيض", "بيضاء", "بيضا"},
	"أخضر":     {"أخضر", "اخضر", "خضراء", "خضرا"},
	"أصفر":     {"أصفر", "اصفر", "صفراء", "صفرا"},
	"رمادي":    {"رمادي", "رصاصي", "جراي"},
	"بني":      {"بني", "بنى"},
	"بيج":      {"بيج"},
	"كحلي":     {"كحلي", "كحلى", "نيفي"},
	"وردي":     {"وردي", "بمبي", "روز"},
	"بنفسجي":   {"بنفسجي", "موف"},
	"برتقالي":  {"برتقالي", "اورانج"},
	"ذهبي":     {"ذهبي", "دهبي"},
	"فضي":      {"فضي", "سيلفر"},
	"زيتي":     {"زيتي"},
	"نبيتي":    {"نبيتي"},
	"جملي":     {"جملي"},
	"أوف وايت": {"أوف وايت", "اوف وايت"},
})

var cityAliases = func() []vocabEntry {
	m := make(map[string][]string, len(core.Governorates))
	for _, g := range core.Governorates {
		m[g.Name] = append([]string{g.Name}, g.Aliases...)
	}
	return buildVocab(m)
}()

// buildVocab folds every spelling and orders entries longest first so
// multi-word phrases win over their parts.
func buildVocab(m map[string][]string) []vocabEntry {
	var out []vocabEntry
	for canonical, spellings := range m {
		for _, s := range spellings {
			out = append(out, vocabEntry{folded: fold(s), canonical: canonical})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].folded) != len(out[j].folded) {
			return len(out[i].folded) > len(out[j].folded)
		}
		return out[i].folded < out[j].folded
	})
	return out
}

func lookup(folded string, vocab []vocabEntry) string {
	for _, e := range vocab {
		if containsWord(folded, e.folded) {
			return e.canonical
		}
	}
	return ""
}

// ExtractHints runs the deterministic pre-pass over one message.
func ExtractHints(message string) Hints {
	text := foldDigits(message)
	folded := fold(message)

	// city names such as بني سويف would otherwise read as colors
	colorText := stripVocab(folded, cityAliases)

	return Hints{
		Phone:   extractPhone(text),
		Address: extractAddress(text),
		City:    lookup(folded, cityAliases),
		Size:    extractSize(folded),
		Color:   lookup(colorText, colorWords),
		Name:    extractName(text),
	}
}

func stripVocab(folded string, vocab []vocabEntry) string {
	for _, e := range vocab {
		folded = strings.ReplaceAll(folded, e.folded, " ")
	}
	return folded
}

// NormalizePhone reduces any accepted spelling of an Egyptian mobile number
// to 01XXXXXXXXX. It returns "" when the input is not one.
func NormalizePhone(raw string) string {
	var sb strings.Builder
	for _, r := range foldDigits(raw) {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	d := sb.String()
	d = strings.TrimPrefix(d, "00")
	if len(d) >= 12 && strings.HasPrefix(d, "20") {
		d = d[2:]
	}
	if len(d) == 10 && strings.HasPrefix(d, "1") {
		d = "0" + d
	}
	if !validPhone.MatchString(d) {
		return ""
	}
	return d
}

func extractPhone(text string) string {
	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isASCIIDigit(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isASCIIDigit(text[loc[1]]) {
			continue
		}
		if phone := NormalizePhone(text[loc[0]:loc[1]]); phone != "" {
			return phone
		}
	}
	return ""
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func extractSize(folded string) string {
	if m := numericSizeRe.FindStringSubmatch(folded); m != nil {
		return m[1]
	}
	if size := lookup(folded, sizeWords); size != "" {
		return size
	}
	for _, w := range words(folded) {
		if size, ok := sizeLetters[w]; ok {
			return size
		}
	}
	return ""
}

// extractAddress tries an explicit label first, then a street or building
// anchor, then any comma or line segment that looks like a location.
func extractAddress(text string) string {
	if m := addressLabelRe.FindStringSubmatch(text); m != nil {
		if addr := cleanAddress(m[1]); addr != "" {
			return addr
		}
	}
	if m := streetAnchorRe.FindStringSubmatch(text); m != nil {
		if addr := cleanAddress(m[1]); addr != "" {
			return addr
		}
	}
	for _, segment := range segmentSplitter.Split(text, -1) {
		if !looksLikeLocation(segment) {
			continue
		}
		if addr := cleanAddress(segment); addr != "" {
			return addr
		}
	}
	return ""
}

func looksLikeLocation(segment string) bool {
	folded := fold(segment)
	hasDigit := strings.IndexFunc(folded, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
	if !hasDigit {
		return false
	}
	for _, w := range addressMarkerWord {
		if containsWord(folded, fold(w)) {
			return true
		}
	}
	return lookup(folded, cityAliases) != ""
}

func cleanAddress(raw string) string {
	s := phonePattern.ReplaceAllString(raw, "")
	s = addressCutRe.ReplaceAllString(s, "")
	s = strings.Trim(strings.TrimSpace(s), "،,.-: ")
	if utf8.RuneCountInString(s) < minAddressRunes {
		return ""
	}
	if strings.IndexFunc(s, isLetterRune) < 0 {
		return ""
	}
	return s
}

func isLetterRune(r rune) bool {
	return isWordRune(r) && (r < '0' || r > '9')
}

func extractName(text string) string {
	m := nameLabelRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	var kept []string
	for _, w := range strings.Fields(m[1]) {
		if _, stop := nameStopWords[strings.ToLower(w)]; stop {
			break
		}
		kept = append(kept, w)
		if len(kept) == 3 {
			break
		}
	}
	name := strings.Join(kept, " ")
	if utf8.RuneCountInString(name) < 2 {
		return ""
	}
	return name
}

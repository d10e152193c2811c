package core

import "strings"

// Governorate is an Egyptian governorate with the spellings customers use.
type Governorate struct {
	Name    string
	Aliases []string
}

var Governorates = []Governorate{
	{Name: "القاهرة", Aliases: []string{"القاهره", "cairo", "مصر الجديدة", "مدينة نصر", "المعادي", "حلوان"}},
	{Name: "الجيزة", Aliases: []string{"الجيزه", "giza", "6 أكتوبر", "اكتوبر", "أكتوبر", "الشيخ زايد", "الهرم", "فيصل"}},
	{Name: "الإسكندرية", Aliases: []string{"الاسكندرية", "الاسكندريه", "اسكندرية", "اسكندريه", "alexandria", "alex"}},
	{Name: "القليوبية", Aliases: []string{"القليوبيه", "qalyubia", "بنها", "شبرا الخيمة"}},
	{Name: "الشرقية", Aliases: []string{"الشرقيه", "sharqia", "الزقازيق", "zagazig"}},
	{Name: "الدقهلية", Aliases: []string{"الدقهليه", "dakahlia", "المنصورة", "المنصوره", "mansoura"}},
	{Name: "الغربية", Aliases: []string{"الغربيه", "gharbia", "طنطا", "tanta", "المحلة"}},
	{Name: "المنوفية", Aliases: []string{"المنوفيه", "monufia", "شبين الكوم"}},
	{Name: "البحيرة", Aliases: []string{"البحيره", "beheira", "دمنهور"}},
	{Name: "كفر الشيخ", Aliases: []string{"kafr el sheikh"}},
	{Name: "دمياط", Aliases: []string{"damietta"}},
	{Name: "بورسعيد", Aliases: []string{"بور سعيد", "port said"}},
	{Name: "الإسماعيلية", Aliases: []string{"الاسماعيلية", "الاسماعيليه", "ismailia"}},
	{Name: "السويس", Aliases: []string{"suez"}},
	{Name: "الفيوم", Aliases: []string{"fayoum", "faiyum"}},
	{Name: "بني سويف", Aliases: []string{"beni suef"}},
	{Name: "المنيا", Aliases: []string{"minya"}},
	{Name: "أسيوط", Aliases: []string{"اسيوط", "assiut"}},
	{Name: "سوهاج", Aliases: []string{"sohag"}},
	{Name: "قنا", Aliases: []string{"qena"}},
	{Name: "الأقصر", Aliases: []string{"الاقصر", "luxor"}},
	{Name: "أسوان", Aliases: []string{"اسوان", "aswan"}},
	{Name: "البحر الأحمر", Aliases: []string{"البحر الاحمر", "الغردقة", "الغردقه", "hurghada", "red sea"}},
	{Name: "مطروح", Aliases: []string{"مرسى مطروح", "matrouh"}},
	{Name: "شمال سيناء", Aliases: []string{"العريش", "north sinai"}},
	{Name: "جنوب سيناء", Aliases: []string{"شرم الشيخ", "south sinai", "sharm"}},
	{Name: "الوادي الجديد", Aliases: []string{"new valley"}},
}

// NormalizeCity maps any known spelling to the canonical governorate name.
// Unknown input is returned trimmed.
func NormalizeCity(city string) string {
	c := strings.TrimSpace(city)
	if c == "" {
		return ""
	}
	lc := strings.ToLower(c)
	for _, g := range Governorates {
		if c == g.Name {
			return g.Name
		}
		for _, a := range g.Aliases {
			if lc == strings.ToLower(a) {
				return g.Name
			}
		}
	}
	return c
}

package normalize

import (
	"sort"
	"strings"
)

// Transliteration maps a romanized phrase to its script-text spellings. The first
// value is the canonical substitution.
type Transliteration struct {
	Key    string
	Values []string
}

var (
	quluHu     = []string{"قل هو", "قُلْ هُوَ"}
	quluAhad   = []string{"قل هو الله أحد", "قُلْ هُوَ اللَّهُ أَحَدٌ"}
	transTable = []Transliteration{
		{"kulhu", quluHu},
		{"qulhu", quluHu},
		{"qul hu", quluHu},
		{"kul hu", quluHu},
		{"allah", []string{"الله", "اللَّه", "اللَّهُ", "اللَّهِ", "ٱللَّه", "ٱللَّهِ"}},
		{"allahu", []string{"الله", "اللَّه", "اللَّهُ", "ٱللَّهُ"}},
		{"allahi", []string{"اللَّهِ", "ٱللَّهِ"}},
		{"rahman", []string{"رحمن", "الرحمن", "رَحْمَٰن", "ٱلرَّحْمَٰن"}},
		{"rahim", []string{"رحيم", "الرحيم", "رَحِيم", "ٱلرَّحِيم"}},
		{"bismillah", []string{"بسم الله", "بِسْمِ اللَّه", "بِسْمِ ٱللَّهِ", "بِسْمِ ٱللَّهِ ٱلرَّحْمَٰنِ ٱلرَّحِيمِ"}},
		{"alhamdulillah", []string{"الحمد لله", "ٱلْحَمْدُ لِلَّه"}},
		{"inshallah", []string{"إن شاء الله", "إِنْ شَاءَ اللَّه"}},
		{"mashallah", []string{"ما شاء الله", "مَا شَاءَ اللَّه"}},
		{"la ilaha illallah", []string{"لا إله إلا الله", "لَا إِلَٰهَ إِلَّا اللَّه"}},
		{"subhanallah", []string{"سبحان الله", "سُبْحَانَ اللَّه"}},
		{"astaghfirullah", []string{"أستغفر الله", "أَسْتَغْفِرُ اللَّه"}},
		{"kul huwallahu ahad", quluAhad},
		{"qul huwallahu ahad", quluAhad},
		{"kulhuwallahu ahad", quluAhad},
		{"qulhuwallahu ahad", quluAhad},
		{"kul huwallah ahad", quluAhad},
		{"qul huwallah ahad", quluAhad},
		{"wahdahu", []string{"وحده", "وَحْدَهُ", "وَحْدَهُۥ"}},
		{"dhukira allah wahdahu", []string{"ذُكِرَ اللَّهُ وَحْدَهُ", "ذكر الله وحده"}},
	}
	// longest key first so "allahu" is replaced before "allah" can match inside it
	bySubstitution = sortedByKeyLength(transTable)
)

func sortedByKeyLength(table []Transliteration) []Transliteration {
	out := make([]Transliteration, len(table))
	copy(out, table)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Key) > len(out[j].Key) })
	return out
}

// Table returns the transliteration table in its fixed order.
func Table() []Transliteration {
	return transTable
}

// Transliterate substitutes romanized phrases with script text. A whole-query match
// returns the first script value; otherwise every key found is replaced, longest
// first. The second result is false when nothing was replaced.
func Transliterate(s string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, t := range transTable {
		if t.Key == lower {
			return t.Values[0], true
		}
	}
	out := lower
	replaced := false
	for _, t := range bySubstitution {
		if strings.Contains(out, t.Key) {
			out = strings.ReplaceAll(out, t.Key, t.Values[0])
			replaced = true
		}
	}
	return out, replaced
}

// PhoneticVariations returns text followed by every table value and key related to
// it: an entry is related when its key occurs in the lower-cased text or any of its
// values occurs in text. The result is de-duplicated and keeps first-seen order.
func PhoneticVariations(text string) []string {
	lower := strings.ToLower(strings.TrimSpace(text))
	seen := map[string]bool{text: true}
	out := []string{text}
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, t := range transTable {
		if !related(t, text, lower) {
			continue
		}
		for _, v := range t.Values {
			add(v)
		}
		add(t.Key)
	}
	return out
}

func related(t Transliteration, text, lower string) bool {
	if strings.Contains(lower, t.Key) {
		return true
	}
	for _, v := range t.Values {
		if strings.Contains(text, v) {
			return true
		}
	}
	return false
}

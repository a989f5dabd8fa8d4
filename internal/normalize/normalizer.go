package normalize

import "strings"

// CanonicalQuery is a query in the form used for embedding and literal matching.
type CanonicalQuery struct {
	Raw              string
	TextForEmbedding string
	// TextVariants are spellings used for literal fuzzy matching only.
	TextVariants []string
	// IsScript is true when the raw query contained Arabic script.
	IsScript bool
}

// Normalize picks the script or Latin path based on the query's script.
func Normalize(raw string) CanonicalQuery {
	if IsArabic(raw) {
		return scriptQuery(raw)
	}
	return latinQuery(raw)
}

// NormalizeLatin always takes the Latin path: transliteration only, no script folding.
func NormalizeLatin(raw string) CanonicalQuery {
	return latinQuery(raw)
}

// ForCollection normalizes raw for a collection. Script-native collections use the
// script-aware path and, for script queries, embed the first two variants together.
// Other collections take the Latin path so romanized input is substituted consistently.
func ForCollection(raw string, scriptNative bool) CanonicalQuery {
	if !scriptNative {
		return latinQuery(raw)
	}
	q := Normalize(raw)
	if q.IsScript && len(q.TextVariants) > 1 {
		q.TextForEmbedding = q.TextVariants[0] + " " + q.TextVariants[1]
	}
	return q
}

// scriptQuery folds script text. Input whose only script code points were marks
// is Latin once folded, and takes the Latin path.
func scriptQuery(raw string) CanonicalQuery {
	text := NormalizeArabic(raw)
	if !IsArabic(text) {
		q := latinQuery(text)
		q.Raw = raw
		return q
	}
	return CanonicalQuery{
		Raw:              raw,
		TextForEmbedding: text,
		TextVariants:     PhoneticVariations(text),
		IsScript:         true,
	}
}

func latinQuery(raw string) CanonicalQuery {
	text := strings.TrimSpace(raw)
	if sub, ok := Transliterate(raw); ok {
		text = NormalizeArabic(sub)
	}
	return CanonicalQuery{
		Raw:              raw,
		TextForEmbedding: text,
		TextVariants:     PhoneticVariations(text),
		IsScript:         IsArabic(raw),
	}
}

// FuzzyMatch reports whether a and b are equal after normalization, one contains the
// other, or any of their phonetic variations normalize to the same string.
func FuzzyMatch(a, b string) bool {
	na, nb := NormalizeArabic(a), NormalizeArabic(b)
	if na == nb || strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	seen := make(map[string]bool)
	for _, v := range PhoneticVariations(b) {
		seen[NormalizeArabic(v)] = true
	}
	for _, v := range PhoneticVariations(a) {
		if seen[NormalizeArabic(v)] {
			return true
		}
	}
	return false
}

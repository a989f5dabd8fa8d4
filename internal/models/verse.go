package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Verse is a scripture verse with its annotations.
type Verse struct {
	Ref      string
	Arabic   string
	English  string
	Roots    string
	Meanings string
	Footnote string
	Subtitle string
	// Text is the embedded string for collections whose metadata carries only text.
	Text string
	// Extra holds other string fields, e.g. translations in further languages.
	Extra map[string]string
}

func (v *Verse) Kind() RecordKind { return KindVerse }
func (v *Verse) isRecord()        {}

// Content returns Text when set, otherwise the translation and script text.
func (v *Verse) Content() string {
	if v.Text != "" {
		return v.Text
	}
	switch {
	case v.English != "" && v.Arabic != "":
		return v.English + "\n" + v.Arabic
	case v.English != "":
		return v.English
	}
	return v.Arabic
}

var verseFields = map[string]func(v *Verse) *string{
	"sura_verse": func(v *Verse) *string { return &v.Ref },
	"arabic":     func(v *Verse) *string { return &v.Arabic },
	"english":    func(v *Verse) *string { return &v.English },
	"roots":      func(v *Verse) *string { return &v.Roots },
	"meanings":   func(v *Verse) *string { return &v.Meanings },
	"footnote":   func(v *Verse) *string { return &v.Footnote },
	"subtitle":   func(v *Verse) *string { return &v.Subtitle },
	"text":       func(v *Verse) *string { return &v.Text },
}

// UnmarshalJSON accepts the verse object shapes found in verse corpora. Values that
// are arrays of strings are joined with ", "; numbers are formatted.
func (v *Verse) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = *VerseFromMap(raw)
	return nil
}

// VerseFromMap builds a Verse from a decoded JSON object.
func VerseFromMap(raw map[string]any) *Verse {
	v := &Verse{}
	for key, val := range raw {
		s, ok := StringValue(val)
		if !ok {
			continue
		}
		if field, known := verseFields[key]; known {
			*field(v) = s
			continue
		}
		if v.Extra == nil {
			v.Extra = make(map[string]string)
		}
		v.Extra[key] = s
	}
	return v
}

// MarshalJSON flattens Extra next to the known fields.
func (v *Verse) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(v.Extra)+8)
	for k, val := range v.Extra {
		out[k] = val
	}
	for key, field := range verseFields {
		if s := *field(v); s != "" || key == "sura_verse" {
			out[key] = s
		}
	}
	return json.Marshal(out)
}

// ExtraKeys returns the Extra field names in sorted order.
func (v *Verse) ExtraKeys() []string {
	keys := make([]string, 0, len(v.Extra))
	for k := range v.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StringValue coerces a decoded JSON value to a string.
func StringValue(val any) (string, bool) {
	switch t := val.(type) {
	case string:
		return t, true
	case float64:
		return fmt.Sprintf("%g", t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	}
	return "", false
}

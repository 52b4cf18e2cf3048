package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the setting that leaves language detection to the engine.
const Auto = "auto"

// Whisper's multilingual models handle these well enough to offer by name.
var named = []language.Tag{
	language.English, language.Spanish, language.French, language.German,
	language.Italian, language.Portuguese, language.Japanese, language.Korean,
	language.Chinese, language.Russian, language.Arabic, language.Hindi,
	language.Dutch, language.Polish, language.Swedish, language.Danish,
	language.Norwegian, language.Finnish, language.Turkish, language.Ukrainian,
	language.Czech, language.Greek, language.Hebrew, language.Vietnamese,
	language.Indonesian, language.Thai,
}

var byName = func() map[string]string {
	names := display.English.Languages()
	m := make(map[string]string, len(named))
	for _, tag := range named {
		base, _ := tag.Base()
		m[strings.ToLower(names.Name(tag))] = base.String()
	}
	return m
}()

// ToISO2 returns the ISO 639-1 code for value, or the shortest code x/text
// knows when no 2-letter form exists. Auto, empty and unrecognized input
// yield "".
func ToISO2(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || v == Auto {
		return ""
	}
	if code, ok := byName[v]; ok {
		return code
	}
	base, err := language.ParseBase(v)
	if err != nil {
		return ""
	}
	return base.String()
}

// DisplayName renders value in English, "Auto-detect" for automatic
// detection and the upper-cased input when nothing matches.
func DisplayName(value string) string {
	code := ToISO2(value)
	if code == "" {
		if v := strings.TrimSpace(value); v != "" && !strings.EqualFold(v, Auto) {
			return strings.ToUpper(v)
		}
		return "Auto-detect"
	}
	if name := display.English.Languages().Name(language.Make(code)); name != "" {
		return name
	}
	return strings.ToUpper(code)
}

// Valid reports whether value is auto or a recognized language.
func Valid(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, Auto) || ToISO2(v) != ""
}

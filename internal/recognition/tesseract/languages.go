// Package tesseract recognizes report-card text with a local Tesseract installation.
//
// The gosseract binding needs libtesseract headers, so the real adapter is only
// compiled with the build tag `tesseract`:
//
//	go build -tags=tesseract ./...
//
// Without the tag the adapter reports recognition.ErrUnavailable.
package tesseract

import "strings"

// localeLanguages maps locale language subtags to Tesseract traineddata names.
var localeLanguages = map[string]string{
	"de": "deu",
	"en": "eng",
	"fr": "fra",
	"nl": "nld",
	"it": "ita",
	"es": "spa",
}

// Languages returns the Tesseract languages for a locale followed by the configured
// extras, without duplicates. English is the fallback.
func Languages(locale string, extra []string) []string {
	var langs []string
	seen := make(map[string]bool)
	add := func(l string) {
		l = strings.TrimSpace(l)
		if l != "" && !seen[l] {
			seen[l] = true
			langs = append(langs, l)
		}
	}

	tag := strings.ToLower(strings.SplitN(strings.ReplaceAll(locale, "_", "-"), "-", 2)[0])
	add(localeLanguages[tag])
	for _, l := range extra {
		add(l)
	}
	if len(langs) == 0 {
		add("eng")
	}
	return langs
}

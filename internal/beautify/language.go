package beautify

import (
	"path/filepath"
	"strings"

	"github.com/cristianradulescu/beautify-ls/internal/config"
)

// Family groups languages handled by the same beautifier. Its value is also
// the option group key in formatter.json.
type Family string

const (
	FamilyStyle  Family = Family(config.StyleOptionsKey)
	FamilyScript Family = Family(config.ScriptOptionsKey)
	FamilyMarkup Family = Family(config.MarkupOptionsKey)
)

// LSP language identifiers with a beautifier.
const (
	LanguageCSS        string = "css"
	LanguageSCSS       string = "scss"
	LanguageJavaScript string = "javascript"
	LanguageHTML       string = "html"
	LanguageJSON       string = "json"
)

var languageFamilies = map[string]Family{
	LanguageCSS:        FamilyStyle,
	LanguageSCSS:       FamilyStyle,
	LanguageJavaScript: FamilyScript,
	// JSON is beautified as script.
	LanguageJSON: FamilyScript,
	LanguageHTML: FamilyMarkup,
}

var extensionLanguages = map[string]string{
	".css":  LanguageCSS,
	".scss": LanguageSCSS,
	".js":   LanguageJavaScript,
	".mjs":  LanguageJavaScript,
	".cjs":  LanguageJavaScript,
	".json": LanguageJSON,
	".html": LanguageHTML,
	".htm":  LanguageHTML,
}

// SupportedLanguages lists the language identifiers in a stable order.
func SupportedLanguages() []string {
	return []string{LanguageCSS, LanguageSCSS, LanguageJavaScript, LanguageHTML, LanguageJSON}
}

// Lookup returns the family for a language identifier.
func Lookup(languageID string) (Family, bool) {
	family, ok := languageFamilies[languageID]
	return family, ok
}

func IsSupported(languageID string) bool {
	_, ok := languageFamilies[languageID]
	return ok
}

// LanguageFromPath infers the language identifier from a file extension.
func LanguageFromPath(path string) (string, bool) {
	languageID, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]
	return languageID, ok
}

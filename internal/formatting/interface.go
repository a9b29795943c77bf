package formatting

import "context"

// Dispatcher beautifies text written in a given language.
type Dispatcher interface {
	// Dispatch returns the beautified text, or beautify.ErrUnsupportedLanguage
	// when no beautifier handles languageID
	Dispatch(ctx context.Context, languageID string, text string) (string, error)
}

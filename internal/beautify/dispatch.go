package beautify

import (
	"context"
	"errors"

	"github.com/cristianradulescu/beautify-ls/internal/config"
)

// ErrUnsupportedLanguage is returned for languages without a beautifier.
var ErrUnsupportedLanguage = errors.New("unsupported language")

const UnsupportedLanguageMessage string = "beautify-ls: this language is not supported (only CSS, SCSS, JavaScript, HTML and JSON)."

// Notifier shows an informational message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) {
	f(ctx, message)
}

// OptionsProvider resolves the option dictionary of a family.
type OptionsProvider interface {
	Options(family string) config.Options
}

// Dispatcher picks the beautifier and options for a document language.
type Dispatcher struct {
	beautifier Beautifier
	options    OptionsProvider
	notifier   Notifier
}

func NewDispatcher(beautifier Beautifier, options OptionsProvider, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		beautifier: beautifier,
		options:    options,
		notifier:   notifier,
	}
}

// Dispatch beautifies text written in languageID. Unsupported languages
// notify the user once and return ErrUnsupportedLanguage.
func (d *Dispatcher) Dispatch(ctx context.Context, languageID string, text string) (string, error) {
	family, ok := Lookup(languageID)
	if !ok {
		if d.notifier != nil {
			d.notifier.Notify(ctx, UnsupportedLanguageMessage)
		}
		return "", ErrUnsupportedLanguage
	}

	return d.beautifier.Beautify(ctx, family, text, d.options.Options(string(family)))
}

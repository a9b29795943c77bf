package formatting

import (
	"context"
	"errors"

	"github.com/cristianradulescu/beautify-ls/internal/beautify"
	"github.com/cristianradulescu/beautify-ls/internal/utils"
	"go.lsp.dev/protocol"
)

// Document is a text document as the server knows it.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int32
	Text       string
}

// Producer turns beautified text into LSP edits.
type Producer struct {
	dispatcher Dispatcher
}

func NewProducer(dispatcher Dispatcher) *Producer {
	return &Producer{dispatcher: dispatcher}
}

// Format beautifies the text of doc inside rng, or the whole document when
// rng is nil, and returns at most one edit replacing that whole range. No
// edit is produced for unsupported languages or empty output.
func (p *Producer) Format(ctx context.Context, doc Document, rng *protocol.Range) ([]protocol.TextEdit, error) {
	target := utils.FullRange(doc.Text)
	if rng != nil {
		target = *rng
	}

	content := utils.TextInRange(doc.Text, target)
	formattedContent, err := p.dispatcher.Dispatch(ctx, doc.LanguageID, content)
	if err != nil {
		if errors.Is(err, beautify.ErrUnsupportedLanguage) {
			return []protocol.TextEdit{}, nil
		}
		return []protocol.TextEdit{}, err
	}

	if formattedContent == "" {
		return []protocol.TextEdit{}, nil
	}

	return []protocol.TextEdit{
		{
			Range:   target,
			NewText: formattedContent,
		},
	}, nil
}

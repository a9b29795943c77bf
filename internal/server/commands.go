package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cristianradulescu/beautify-ls/internal/beautify"
	"github.com/cristianradulescu/beautify-ls/internal/config"
	"github.com/cristianradulescu/beautify-ls/internal/utils"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

func (s *Server) handleExecuteCommand(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.ExecuteCommandParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling executeCommand params", zap.Error(err))
		return err
	}

	s.logger.Info("Executing command", zap.String("command", params.Command))

	switch params.Command {
	case getFullLspCommandName(LspCommandNameBeautify):
		return s.handleBeautifyCommand(ctx, reply, params.Arguments)
	case getFullLspCommandName(LspCommandNameOpenConfig):
		return s.handleOpenConfigCommand(ctx, reply)
	case getFullLspCommandName(LspCommandNameCreateLocalConfig):
		return s.handleCreateLocalConfigCommand(ctx, reply)
	case getFullLspCommandName(LspCommandNameShowConfig):
		return s.handleShowConfigCommand(ctx, reply)

	default:
		return reply(ctx, nil, fmt.Errorf("unknown command: %s", params.Command))
	}
}

// handleBeautifyCommand formats the document named by the first argument and
// asks the client to apply the result.
func (s *Server) handleBeautifyCommand(ctx context.Context, reply jsonrpc2.Replier, arguments []interface{}) error {
	if len(arguments) == 0 {
		return reply(ctx, nil, errors.New("beautify requires a document URI argument"))
	}
	rawURI, ok := arguments[0].(string)
	if !ok || rawURI == "" {
		return reply(ctx, nil, fmt.Errorf("invalid document URI argument: %v", arguments[0]))
	}
	uri := protocol.DocumentURI(rawURI)

	edits, err := s.formatDocument(ctx, uri, nil)
	if err != nil {
		s.reportFormattingError(ctx, uri, err)
		return reply(ctx, nil, nil)
	}
	if err := reply(ctx, nil, nil); err != nil {
		return err
	}
	if len(edits) == 0 {
		return nil
	}

	// The client answers applyEdit on the same connection, so never wait for
	// it inside the handler.
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		ctx, cancel := s.clientRequestContext()
		defer cancel()
		s.applyEdits(ctx, uri, edits)
	}()

	return nil
}

// clientRequestContext bounds a request the server sends to the client after
// replying, so an unanswered request cannot keep its goroutine alive.
func (s *Server) clientRequestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.options.FormatTimeout)
}

func (s *Server) applyEdits(ctx context.Context, uri protocol.DocumentURI, edits []protocol.TextEdit) {
	params := protocol.ApplyWorkspaceEditParams{
		Label: "Beautify",
		Edit: protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{uri: edits},
		},
	}

	var result protocol.ApplyWorkspaceEditResponse
	if _, err := s.conn.Call(ctx, protocol.MethodWorkspaceApplyEdit, params, &result); err != nil {
		s.logger.Error("Failed to apply edits", zap.String("uri", string(uri)), zap.Error(err))
		return
	}
	if !result.Applied {
		s.logger.Warn("Client rejected edits", zap.String("uri", string(uri)), zap.String("reason", result.FailureReason))
	}
}

// handleOpenConfigCommand opens the local configuration, falling back to the
// global one, and tells the user when neither can be opened.
func (s *Server) handleOpenConfigCommand(ctx context.Context, reply jsonrpc2.Replier) error {
	if err := reply(ctx, nil, nil); err != nil {
		return err
	}

	candidates := s.currentLoader().ExistingPaths()
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		ctx, cancel := s.clientRequestContext()
		defer cancel()
		s.openConfig(ctx, candidates)
	}()

	return nil
}

func (s *Server) openConfig(ctx context.Context, candidates []config.Source) {
	for _, candidate := range candidates {
		var result protocol.ShowDocumentResult
		params := &protocol.ShowDocumentParams{URI: utils.PathToURI(candidate.Path), TakeFocus: true}
		if _, err := s.conn.Call(ctx, protocol.MethodShowDocument, params, &result); err != nil || !result.Success {
			s.logger.Warn("Could not open configuration", zap.String("path", candidate.Path), zap.Error(err))
			continue
		}

		s.notifyInfo(ctx, fmt.Sprintf("[%s] Opened %s. Changes apply to the next formatting run.", candidate.Name, candidate.Path))
		return
	}

	s.notifyInfo(ctx, fmt.Sprintf("No %s found.", config.ConfigFileName))
}

// handleCreateLocalConfigCommand copies the packaged default configuration into
// the workspace without overwriting an existing file.
func (s *Server) handleCreateLocalConfigCommand(ctx context.Context, reply jsonrpc2.Replier) error {
	loader := s.currentLoader()
	dest := loader.LocalPath()

	err := config.Bootstrap(dest, loader.Template())
	switch {
	case errors.Is(err, config.ErrConfigExists):
		s.notifyInfo(ctx, fmt.Sprintf("Local configuration already exists: %s", dest))
	case err != nil:
		s.logger.Error("Failed to create local configuration", zap.String("path", dest), zap.Error(err))
		s.notifyInfo(ctx, fmt.Sprintf("Failed to write configuration: %v", err))
	default:
		s.logger.Info("Created local configuration", zap.String("path", dest))
		s.notifyInfo(ctx, fmt.Sprintf("Local configuration created: %s", dest))
	}

	return reply(ctx, nil, nil)
}

type resolvedConfig struct {
	OnSave  bool                      `json:"onSave"`
	Options map[string]config.Options `json:"options"`
}

func (s *Server) handleShowConfigCommand(ctx context.Context, reply jsonrpc2.Replier) error {
	loader := s.currentLoader()
	resolved := resolvedConfig{
		OnSave:  loader.OnSave(),
		Options: make(map[string]config.Options),
	}
	for _, family := range []beautify.Family{beautify.FamilyStyle, beautify.FamilyScript, beautify.FamilyMarkup} {
		resolved.Options[string(family)] = loader.Options(string(family))
	}

	data, err := json.Marshal(resolved)
	if err != nil {
		return reply(ctx, nil, fmt.Errorf("failed to encode configuration: %w", err))
	}
	s.showWindowMessage(ctx, protocol.MessageTypeInfo, fmt.Sprintf("Current configuration: %s", data))

	return reply(ctx, nil, nil)
}

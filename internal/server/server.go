package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cristianradulescu/beautify-ls/internal/beautify"
	"github.com/cristianradulescu/beautify-ls/internal/config"
	"github.com/cristianradulescu/beautify-ls/internal/formatting"
	"github.com/cristianradulescu/beautify-ls/internal/logging"
	"github.com/cristianradulescu/beautify-ls/internal/utils"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

const defaultFormatTimeout = 5 * time.Second

// Conn is the part of jsonrpc2.Conn the server talks to the client through.
type Conn interface {
	Call(ctx context.Context, method string, params, result interface{}) (jsonrpc2.ID, error)
	Notify(ctx context.Context, method string, params interface{}) error
	Close() error
}

// Options configures a Server.
type Options struct {
	// GlobalConfigPath is the packaged default formatter.json.
	GlobalConfigPath string
	Beautifier       beautify.Beautifier
	// FormatTimeout bounds a single beautifier run, so a save waiting on
	// willSaveWaitUntil is never held indefinitely.
	FormatTimeout time.Duration
	// Validate checks the beautifier is usable once the client is initialized.
	Validate func(ctx context.Context) error
	Logger   *zap.Logger
}

// Server represents the Language Server Protocol (LSP) server
type Server struct {
	conn    Conn
	options Options
	logger  *zap.Logger

	loaderMu sync.RWMutex
	loader   *config.Loader

	// In-memory document cache for synchronized content
	docMu     sync.RWMutex
	documents map[protocol.DocumentURI]formatting.Document

	// Client requests issued after a command has been replied to; they run
	// outside the handler so the connection can deliver their responses.
	async sync.WaitGroup
}

// New creates a new LSP server instance
func New(conn Conn, options Options) *Server {
	if options.FormatTimeout <= 0 {
		options.FormatTimeout = defaultFormatTimeout
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	serverLogger := logger.Named(logging.NameLSP).Named(logging.NameServer)

	// Used until initialize names the workspace.
	cwd, err := os.Getwd()
	if err != nil {
		serverLogger.Warn("Could not determine working directory, local configuration is unavailable until initialize", zap.Error(err))
		cwd = ""
	}

	return &Server{
		conn:      conn,
		options:   options,
		logger:    serverLogger,
		loader:    config.NewLoader(cwd, options.GlobalConfigPath),
		documents: make(map[protocol.DocumentURI]formatting.Document),
	}
}

func (s *Server) Handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Debug("Received request", zap.String("method", req.Method()))

	switch req.Method() {
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, reply, req)
	case protocol.MethodInitialized:
		return s.handleInitialized(ctx, reply, req)
	case protocol.MethodWorkspaceExecuteCommand:
		return s.handleExecuteCommand(ctx, reply, req)
	case protocol.MethodTextDocumentDidOpen:
		return s.handleDidOpen(ctx, reply, req)
	case protocol.MethodTextDocumentDidChange:
		return s.handleDidChange(ctx, reply, req)
	case protocol.MethodTextDocumentDidClose:
		return s.handleDidClose(ctx, reply, req)
	case protocol.MethodTextDocumentDidSave:
		return s.handleDidSave(ctx, reply, req)
	case protocol.MethodTextDocumentWillSaveWaitUntil:
		return s.handleWillSaveWaitUntil(ctx, reply, req)
	case protocol.MethodTextDocumentFormatting:
		return s.handleDocumentFormatting(ctx, reply, req)
	case protocol.MethodTextDocumentRangeFormatting:
		return s.handleDocumentRangeFormatting(ctx, reply, req)
	case protocol.MethodShutdown:
		return s.handleShutdown(ctx, reply, req)
	case protocol.MethodExit:
		return s.handleExit(ctx, reply, req)
	case protocol.MethodCancelRequest:
		return s.handleCancelRequest(ctx, reply, req)
	default:
		s.logger.Debug("Unhandled method", zap.String("method", req.Method()))
		return reply(ctx, nil, nil)
	}
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling initialize params", zap.Error(err))
		return err
	}

	if params.ClientInfo != nil {
		s.logger.Info("Client info", zap.String("name", params.ClientInfo.Name), zap.String("version", params.ClientInfo.Version))
	}

	// Determine workspace root from workspace folder URI or RootURI
	projectRoot := ""
	if len(params.WorkspaceFolders) > 0 && params.WorkspaceFolders[0].URI != "" {
		projectRoot = utils.URIToPath(protocol.DocumentURI(params.WorkspaceFolders[0].URI))
	} else if params.RootURI != "" {
		projectRoot = utils.URIToPath(params.RootURI)
	} else if cwd, cwdErr := os.Getwd(); cwdErr == nil {
		projectRoot = cwd
	} else {
		s.logger.Warn("No workspace root and no working directory", zap.Error(cwdErr))
	}
	s.setLoader(config.NewLoader(projectRoot, s.options.GlobalConfigPath))
	s.logger.Info("Workspace resolved",
		zap.String("root", projectRoot),
		zap.String("localConfig", config.LocalConfigPath(projectRoot)),
		zap.String("globalConfig", s.options.GlobalConfigPath))

	resp := protocol.InitializeResult{
		Capabilities: serverCapabilities(),
		ServerInfo:   serverInfo(),
	}

	return reply(ctx, resp, nil)
}

func (s *Server) handleInitialized(ctx context.Context, reply jsonrpc2.Replier, _ jsonrpc2.Request) error {
	s.logger.Info("Client initialized successfully")

	if s.options.Validate != nil {
		if err := s.options.Validate(ctx); err != nil {
			s.logger.Warn("Beautifier is not available", zap.Error(err))
			s.showWindowMessage(ctx, protocol.MessageTypeWarning, fmt.Sprintf("%s: beautifier is not available: %v", config.Name, err))
		}
	}

	return reply(ctx, nil, nil)
}

func (s *Server) handleDidOpen(_ context.Context, _ jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling params", zap.String("method", req.Method()), zap.Error(err))
		return err
	}

	s.setDocument(formatting.Document{
		URI:        params.TextDocument.URI,
		LanguageID: string(params.TextDocument.LanguageID),
		Version:    params.TextDocument.Version,
		Text:       params.TextDocument.Text,
	})

	return nil
}

func (s *Server) handleDidChange(_ context.Context, _ jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling params", zap.String("method", req.Method()), zap.Error(err))
		return err
	}

	if len(params.ContentChanges) > 0 {
		lastChange := params.ContentChanges[len(params.ContentChanges)-1]
		s.updateDocumentText(params.TextDocument.URI, params.TextDocument.Version, lastChange.Text)
	}

	return nil
}

func (s *Server) handleDidSave(_ context.Context, _ jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling params", zap.String("method", req.Method()), zap.Error(err))
		return err
	}

	if params.Text != "" {
		if doc, ok := s.getDocument(params.TextDocument.URI); ok {
			s.updateDocumentText(params.TextDocument.URI, doc.Version, params.Text)
		}
	}

	return nil
}

func (s *Server) handleDidClose(_ context.Context, _ jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling params", zap.String("method", req.Method()), zap.Error(err))
		return err
	}

	s.deleteDocument(params.TextDocument.URI)

	return nil
}

func (s *Server) handleDocumentFormatting(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentFormattingParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling document formatting params", zap.Error(err))
		return err
	}

	edits, err := s.formatDocument(ctx, params.TextDocument.URI, nil)
	if err != nil {
		s.reportFormattingError(ctx, params.TextDocument.URI, err)
	}

	return reply(ctx, utils.EnsureTextEditsArray(edits), nil)
}

func (s *Server) handleDocumentRangeFormatting(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentRangeFormattingParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling range formatting params", zap.Error(err))
		return err
	}

	rng := params.Range
	edits, err := s.formatDocument(ctx, params.TextDocument.URI, &rng)
	if err != nil {
		s.reportFormattingError(ctx, params.TextDocument.URI, err)
	}

	return reply(ctx, utils.EnsureTextEditsArray(edits), nil)
}

// handleWillSaveWaitUntil formats supported documents before they are saved
// when onSave is enabled. It always replies, with no edits on any failure.
func (s *Server) handleWillSaveWaitUntil(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.WillSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling will save params", zap.Error(err))
		return err
	}

	noEdits := []protocol.TextEdit{}
	uri := params.TextDocument.URI

	doc, err := s.document(uri)
	if err != nil {
		s.logger.Warn("Document not available before save", zap.String("uri", string(uri)), zap.Error(err))
		return reply(ctx, noEdits, nil)
	}
	if !beautify.IsSupported(doc.LanguageID) {
		return reply(ctx, noEdits, nil)
	}
	if !s.currentLoader().OnSave() {
		s.logger.Debug("Format on save disabled", zap.String("uri", string(uri)))
		return reply(ctx, noEdits, nil)
	}

	edits, err := s.produceEdits(ctx, doc, nil)
	if err != nil {
		s.logger.Warn("Format on save failed", zap.String("uri", string(uri)), zap.Error(err))
		return reply(ctx, noEdits, nil)
	}

	return reply(ctx, utils.EnsureTextEditsArray(edits), nil)
}

// handleShutdown does not wait for pending client requests: their responses
// arrive on the loop running this handler. They end on their own timeout.
func (s *Server) handleShutdown(ctx context.Context, reply jsonrpc2.Replier, _ jsonrpc2.Request) error {
	s.logger.Info("Performing cleanup before shutdown")

	return reply(ctx, nil, nil)
}

func (s *Server) handleExit(_ context.Context, _ jsonrpc2.Replier, _ jsonrpc2.Request) error {
	s.logger.Info("Exiting server")

	return s.conn.Close()
}

func (s *Server) handleCancelRequest(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		s.logger.Error("Error unmarshaling cancel request params", zap.Error(err))
		return err
	}

	// Cancellation itself goes through the jsonrpc2 request context.
	s.logger.Debug("Client requested cancellation", zap.Any("id", params.ID))
	return reply(ctx, nil, nil)
}

// formatDocument produces the edits for uri, limited to rng when set.
func (s *Server) formatDocument(ctx context.Context, uri protocol.DocumentURI, rng *protocol.Range) ([]protocol.TextEdit, error) {
	doc, err := s.document(uri)
	if err != nil {
		return nil, err
	}

	return s.produceEdits(ctx, doc, rng)
}

func (s *Server) produceEdits(ctx context.Context, doc formatting.Document, rng *protocol.Range) ([]protocol.TextEdit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.options.FormatTimeout)
	defer cancel()

	dispatcher := beautify.NewDispatcher(s.options.Beautifier, s.currentLoader(), beautify.NotifierFunc(s.notifyInfo))
	edits, err := formatting.NewProducer(dispatcher).Format(ctx, doc, rng)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("beautifier timed out after %s", s.options.FormatTimeout)
	}

	return edits, err
}

func (s *Server) reportFormattingError(ctx context.Context, uri protocol.DocumentURI, err error) {
	s.logger.Error("Formatting failed", zap.String("uri", string(uri)), zap.Error(err))
	s.showWindowMessage(ctx, protocol.MessageTypeError, fmt.Sprintf("%s: formatting failed: %v", config.Name, err))
}

func (s *Server) notifyInfo(ctx context.Context, message string) {
	s.showWindowMessage(ctx, protocol.MessageTypeInfo, message)
}

func (s *Server) showWindowMessage(ctx context.Context, messageType protocol.MessageType, message string) {
	params := &protocol.ShowMessageParams{Type: messageType, Message: message}
	if err := s.conn.Notify(ctx, protocol.MethodWindowShowMessage, params); err != nil {
		s.logger.Error("Failed to send window message", zap.Error(err))
	}
}

func (s *Server) setLoader(loader *config.Loader) {
	s.loaderMu.Lock()
	defer s.loaderMu.Unlock()
	s.loader = loader
}

func (s *Server) currentLoader() *config.Loader {
	s.loaderMu.RLock()
	defer s.loaderMu.RUnlock()
	return s.loader
}

// document returns the synchronized document, or reads it from disk when the
// client never opened it.
func (s *Server) document(uri protocol.DocumentURI) (formatting.Document, error) {
	if doc, ok := s.getDocument(uri); ok {
		return doc, nil
	}

	filePath := utils.URIToPath(uri)
	fileContent, err := os.ReadFile(filePath)
	if err != nil {
		return formatting.Document{}, fmt.Errorf("failed to read file: %w", err)
	}
	languageID, _ := beautify.LanguageFromPath(filePath)

	return formatting.Document{URI: uri, LanguageID: languageID, Text: string(fileContent)}, nil
}

func (s *Server) setDocument(doc formatting.Document) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	s.documents[doc.URI] = doc
}

func (s *Server) updateDocumentText(uri protocol.DocumentURI, version int32, text string) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	doc, exists := s.documents[uri]
	if !exists {
		languageID, _ := beautify.LanguageFromPath(utils.URIToPath(uri))
		doc = formatting.Document{URI: uri, LanguageID: languageID}
	}
	doc.Version = version
	doc.Text = text
	s.documents[uri] = doc
}

func (s *Server) getDocument(uri protocol.DocumentURI) (formatting.Document, bool) {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	doc, exists := s.documents[uri]
	return doc, exists
}

func (s *Server) deleteDocument(uri protocol.DocumentURI) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	delete(s.documents, uri)
}

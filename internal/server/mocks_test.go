package server

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cristianradulescu/beautify-ls/internal/beautify"
	"github.com/cristianradulescu/beautify-ls/internal/config"
	"github.com/cristianradulescu/beautify-ls/internal/utils"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

type notification struct {
	method string
	params interface{}
}

type outgoingCall struct {
	method      string
	params      interface{}
	hasDeadline bool
}

// fakeConn records what the server sends to the client. respond fills the
// result of client calls; when nil calls succeed with a zero result. With
// block set, calls wait for their context instead, like an unanswered request.
type fakeConn struct {
	mu            sync.Mutex
	notifications []notification
	calls         []outgoingCall
	closed        bool
	block         bool
	respond       func(method string, params interface{}) (interface{}, error)
}

func (c *fakeConn) Call(ctx context.Context, method string, params, result interface{}) (jsonrpc2.ID, error) {
	_, hasDeadline := ctx.Deadline()
	c.mu.Lock()
	c.calls = append(c.calls, outgoingCall{method: method, params: params, hasDeadline: hasDeadline})
	respond := c.respond
	block := c.block
	id := jsonrpc2.NewNumberID(int32(len(c.calls)))
	c.mu.Unlock()

	if block {
		<-ctx.Done()
		return id, ctx.Err()
	}

	if respond == nil {
		return id, nil
	}
	response, err := respond(method, params)
	if err != nil {
		return id, err
	}
	data, err := json.Marshal(response)
	if err != nil {
		return id, err
	}
	return id, json.Unmarshal(data, result)
}

func (c *fakeConn) Notify(_ context.Context, method string, params interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, notification{method: method, params: params})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []*protocol.ShowMessageParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	var messages []*protocol.ShowMessageParams
	for _, n := range c.notifications {
		if n.method != protocol.MethodWindowShowMessage {
			continue
		}
		if params, ok := n.params.(*protocol.ShowMessageParams); ok {
			messages = append(messages, params)
		}
	}
	return messages
}

func (c *fakeConn) callsTo(method string) []outgoingCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var calls []outgoingCall
	for _, call := range c.calls {
		if call.method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

type beautifyCall struct {
	family  beautify.Family
	text    string
	options config.Options
}

// fakeBeautifier returns format(text), or blocks until the context is done
// when block is set.
type fakeBeautifier struct {
	mu     sync.Mutex
	calls  []beautifyCall
	format func(text string) (string, error)
	block  bool
}

func (b *fakeBeautifier) Beautify(ctx context.Context, family beautify.Family, text string, options config.Options) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, beautifyCall{family: family, text: text, options: options})
	b.mu.Unlock()

	if b.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if b.format == nil {
		return text, nil
	}
	return b.format(text)
}

func (b *fakeBeautifier) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type replyRecorder struct {
	called bool
	result interface{}
	err    error
}

func (r *replyRecorder) reply(_ context.Context, result interface{}, err error) error {
	r.called = true
	r.result = result
	r.err = err
	return nil
}

func (r *replyRecorder) edits(t *testing.T) []protocol.TextEdit {
	t.Helper()
	require.True(t, r.called, "handler did not reply")
	require.NoError(t, r.err)
	edits, ok := r.result.([]protocol.TextEdit)
	require.True(t, ok, "expected []protocol.TextEdit, got %T", r.result)
	require.NotNil(t, edits)
	return edits
}

type testEnv struct {
	server     *Server
	conn       *fakeConn
	beautifier *fakeBeautifier
	root       string
	globalPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		conn:       &fakeConn{},
		beautifier: &fakeBeautifier{},
		root:       t.TempDir(),
		globalPath: filepath.Join(t.TempDir(), config.ConfigFileName),
	}
	env.server = New(env.conn, Options{
		GlobalConfigPath: env.globalPath,
		Beautifier:       env.beautifier,
	})

	env.call(t, protocol.MethodInitialize, protocol.InitializeParams{
		RootURI: utils.PathToURI(env.root),
	})

	return env
}

func (env *testEnv) call(t *testing.T, method string, params interface{}) *replyRecorder {
	t.Helper()
	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), method, params)
	require.NoError(t, err)

	recorder := &replyRecorder{}
	require.NoError(t, env.server.Handle(context.Background(), recorder.reply, req))
	return recorder
}

func (env *testEnv) notify(t *testing.T, method string, params interface{}) {
	t.Helper()
	req, err := jsonrpc2.NewNotification(method, params)
	require.NoError(t, err)

	recorder := &replyRecorder{}
	require.NoError(t, env.server.Handle(context.Background(), recorder.reply, req))
}

func (env *testEnv) open(t *testing.T, name string, languageID string, text string) protocol.DocumentURI {
	t.Helper()
	uri := utils.PathToURI(filepath.Join(env.root, name))
	env.notify(t, protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: protocol.LanguageIdentifier(languageID),
			Version:    1,
			Text:       text,
		},
	})
	return uri
}

func (env *testEnv) writeLocalConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, config.Bootstrap(config.LocalConfigPath(env.root), []byte(content)))
}

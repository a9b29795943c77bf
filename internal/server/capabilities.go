package server

import (
	"fmt"

	"github.com/cristianradulescu/beautify-ls/internal/config"
	"go.lsp.dev/protocol"
)

const (
	LspCommandPrefix                = config.Name
	LspCommandSeparator             = "/"
	LspCommandNameBeautify          = "beautify"
	LspCommandNameOpenConfig        = "openConfig"
	LspCommandNameCreateLocalConfig = "createLocalConfig"
	LspCommandNameShowConfig        = "showConfig"
)

func serverCapabilities() protocol.ServerCapabilities {
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			Change:            protocol.TextDocumentSyncKindFull,
			OpenClose:         true,
			WillSaveWaitUntil: true,
			Save:              &protocol.SaveOptions{IncludeText: false},
		},
		ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
			Commands: []string{
				getFullLspCommandName(LspCommandNameBeautify),
				getFullLspCommandName(LspCommandNameOpenConfig),
				getFullLspCommandName(LspCommandNameCreateLocalConfig),
				getFullLspCommandName(LspCommandNameShowConfig),
			},
		},
		DocumentFormattingProvider:      true,
		DocumentRangeFormattingProvider: true,
	}
}

func serverInfo() *protocol.ServerInfo {
	return &protocol.ServerInfo{
		Name:    string(config.Name),
		Version: string(config.Version),
	}
}

func getFullLspCommandName(command string) string {
	return fmt.Sprintf("%s%s%s", LspCommandPrefix, LspCommandSeparator, command)
}

package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	Name           string = "beautify-ls"
	Version        string = "0.1.0"
	ConfigFileName string = "formatter.json"
	LocalConfigDir string = ".vscode"

	ConfigItemOnSave string = "onSave"

	// Option groups inside formatter.json, one per beautifier family.
	StyleOptionsKey  string = "css"
	ScriptOptionsKey string = "javascript"
	MarkupOptionsKey string = "html"

	SourceNameLocal   string = "local"
	SourceNameGlobal  string = "global"
	SourceNameDefault string = "default"
)

//go:embed default_formatter.json
var defaultTemplate []byte

// DefaultTemplate returns the formatter.json shipped with the binary.
func DefaultTemplate() []byte {
	return bytes.Clone(defaultTemplate)
}

// Options is a flat option dictionary handed to a beautifier.
type Options map[string]any

// File is a parsed formatter.json.
type File struct {
	v *viper.Viper
}

func ParseFile(data []byte) (*File, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &File{v: v}, nil
}

// Options returns a copy of the option group for family. The second result
// is false when the group is missing or is not an object.
func (f *File) Options(family string) (Options, bool) {
	if !f.v.IsSet(family) {
		return nil, false
	}

	group, ok := f.v.Get(family).(map[string]interface{})
	if !ok {
		return nil, false
	}

	options := make(Options, len(group))
	for name, value := range group {
		options[name] = value
	}

	return options, true
}

// OnSave reports the onSave flag and whether the file defines it as a boolean.
func (f *File) OnSave() (bool, bool) {
	if !f.v.IsSet(ConfigItemOnSave) {
		return false, false
	}

	onSave, ok := f.v.Get(ConfigItemOnSave).(bool)
	return onSave, ok
}

// Source is one candidate formatter.json. Content, when set, is used instead
// of reading Path.
type Source struct {
	Name    string
	Path    string
	Content []byte
}

// DefaultSource is the formatter.json embedded in the binary.
func DefaultSource() Source {
	return Source{Name: SourceNameDefault, Content: DefaultTemplate()}
}

// Read loads and parses the source. Any failure reports absence.
func (s Source) Read() (*File, bool) {
	data := s.Content
	if data == nil {
		if s.Path == "" {
			return nil, false
		}

		var err error
		data, err = os.ReadFile(s.Path)
		if err != nil {
			return nil, false
		}
	}

	file, err := ParseFile(data)
	if err != nil {
		return nil, false
	}

	return file, true
}

// LocalConfigPath is the workspace-local formatter.json for root.
func LocalConfigPath(root string) string {
	return filepath.Join(root, LocalConfigDir, ConfigFileName)
}

// DefaultGlobalConfigPath is the packaged default location under the user
// config directory, or "" when that directory cannot be determined.
func DefaultGlobalConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}

	return filepath.Join(dir, Name, ConfigFileName)
}

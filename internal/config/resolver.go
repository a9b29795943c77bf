package config

import "os"

// scriptOverrides replace outdated js-beautify defaults. They are applied
// after resolution so no configuration file can turn them off.
var scriptOverrides = Options{
	"space_in_paren":            false,
	"space_in_empty_paren":      false,
	"space_after_anon_function": false,
	"jslint_happy":              false,
	"keep_array_indentation":    false,
	"preserve_newlines":         true,
	"space_before_conditional":  true,
	"operator_position":         "before-newline",
}

// Resolve returns the option group for family from the first source that
// parses and defines it, or an empty dictionary when none does.
func Resolve(sources []Source, family string) Options {
	options := Options{}
	for _, source := range sources {
		file, ok := source.Read()
		if !ok {
			continue
		}
		if group, ok := file.Options(family); ok {
			options = group
			break
		}
	}

	if family == ScriptOptionsKey {
		ApplyScriptOverrides(options)
	}

	return options
}

// ApplyScriptOverrides forces the script option overrides into options.
func ApplyScriptOverrides(options Options) {
	for name, value := range scriptOverrides {
		options[name] = value
	}
}

// ResolveOnSave returns the onSave flag from the first source defining it,
// defaulting to true.
func ResolveOnSave(sources []Source) bool {
	for _, source := range sources {
		file, ok := source.Read()
		if !ok {
			continue
		}
		if onSave, ok := file.OnSave(); ok {
			return onSave
		}
	}

	return true
}

// Loader binds the local and global formatter.json locations of one
// workspace. Nothing is cached; every call reads the files again.
type Loader struct {
	root       string
	globalPath string
}

func NewLoader(root string, globalPath string) *Loader {
	return &Loader{root: root, globalPath: globalPath}
}

func (l *Loader) Root() string {
	return l.root
}

func (l *Loader) LocalPath() string {
	return LocalConfigPath(l.root)
}

func (l *Loader) GlobalPath() string {
	return l.globalPath
}

// Sources lists the configuration sources in preference order. The embedded
// default always parses, so it answers whatever the files leave out.
func (l *Loader) Sources() []Source {
	return []Source{
		{Name: SourceNameLocal, Path: l.LocalPath()},
		{Name: SourceNameGlobal, Path: l.globalPath},
		DefaultSource(),
	}
}

func (l *Loader) Options(family string) Options {
	return Resolve(l.Sources(), family)
}

func (l *Loader) OnSave() bool {
	return ResolveOnSave(l.Sources())
}

// Template is the content a new local configuration is created from: the
// global file when readable, otherwise the embedded default.
func (l *Loader) Template() []byte {
	if l.globalPath != "" {
		if data, err := os.ReadFile(l.globalPath); err == nil {
			return data
		}
	}

	return DefaultTemplate()
}

// ExistingPaths returns the configuration files present on disk, local first.
// The embedded default has no path and is never listed.
func (l *Loader) ExistingPaths() []Source {
	var existing []Source
	for _, source := range l.Sources() {
		if source.Content != nil || source.Path == "" {
			continue
		}
		if info, err := os.Stat(source.Path); err == nil && !info.IsDir() {
			existing = append(existing, source)
		}
	}

	return existing
}

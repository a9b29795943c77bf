package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrConfigExists is returned when the destination configuration is already present.
var ErrConfigExists = errors.New("configuration already exists")

// InitTarget identifies which configuration file is initialized.
type InitTarget string

const (
	// InitTargetLocal writes <root>/.vscode/formatter.json.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes the packaged default location.
	InitTargetGlobal InitTarget = "global"
)

// InitOptions controls InitializeConfiguration.
type InitOptions struct {
	Target     InitTarget
	Force      bool
	Root       string
	GlobalPath string
}

// Bootstrap writes template to dest unless dest already exists. Parent
// directories are created as needed and the file is replaced atomically.
func Bootstrap(dest string, template []byte) error {
	return writeConfiguration(dest, template, false)
}

// InitializeConfiguration creates the requested configuration file and
// returns its path. A local file is copied from the global one when present.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}

	var destinationPath string
	var template []byte
	switch target {
	case InitTargetLocal:
		root := options.Root
		if root == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			root = current
		}
		loader := NewLoader(root, options.GlobalPath)
		destinationPath = loader.LocalPath()
		template = loader.Template()
	case InitTargetGlobal:
		destinationPath = options.GlobalPath
		if destinationPath == "" {
			destinationPath = DefaultGlobalConfigPath()
		}
		if destinationPath == "" {
			return "", errors.New("cannot determine global configuration path")
		}
		template = DefaultTemplate()
	default:
		return "", fmt.Errorf("unsupported init target %q", target)
	}

	if err := writeConfiguration(destinationPath, template, options.Force); err != nil {
		return destinationPath, err
	}

	return destinationPath, nil
}

func writeConfiguration(dest string, content []byte, force bool) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create configuration directory %s: %w", dir, err)
	}

	if !force {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, dest)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat configuration %s: %w", dest, err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+ConfigFileName+".*")
	if err != nil {
		return fmt.Errorf("create temporary configuration: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write configuration %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write configuration %s: %w", dest, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write configuration %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write configuration %s: %w", dest, err)
	}

	return nil
}

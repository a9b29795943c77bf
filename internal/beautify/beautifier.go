package beautify

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cristianradulescu/beautify-ls/internal/config"
	"github.com/cristianradulescu/beautify-ls/internal/runner"
)

const DefaultBinary string = "js-beautify"

// Beautifier reformats text of one family with the given options.
type Beautifier interface {
	Beautify(ctx context.Context, family Family, text string, options config.Options) (string, error)
}

// JSBeautify runs the js-beautify command line tool, passing the text on
// stdin and every option as a flag.
type JSBeautify struct {
	Runner runner.Runner
	Binary string
}

func NewJSBeautify(r runner.Runner, binary string) *JSBeautify {
	if binary == "" {
		binary = DefaultBinary
	}

	return &JSBeautify{Runner: r, Binary: binary}
}

func (b *JSBeautify) Beautify(ctx context.Context, family Family, text string, options config.Options) (string, error) {
	args, err := Args(family, options)
	if err != nil {
		return "", err
	}

	out, err := b.Runner.Run(ctx, b.Binary, args, strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("could not beautify %s: %w", family, err)
	}

	return string(out), nil
}

// Args builds the js-beautify argv for family. Options are emitted in name
// order, underscores become dashes, false booleans use the --no- prefix and
// the input is read from stdin.
func Args(family Family, options config.Options) ([]string, error) {
	fileType, err := fileType(family)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)

	args := []string{"--type", fileType}
	for _, name := range names {
		flag := "--" + strings.ReplaceAll(name, "_", "-")
		switch value := options[name].(type) {
		case nil:
		case bool:
			if value {
				args = append(args, flag)
			} else {
				args = append(args, "--no-"+strings.TrimPrefix(flag, "--"))
			}
		case []interface{}:
			for _, item := range value {
				args = append(args, flag+"="+formatScalar(item))
			}
		case map[string]interface{}:
			return nil, fmt.Errorf("option %s: nested objects are not supported", name)
		default:
			args = append(args, flag+"="+formatScalar(value))
		}
	}

	return append(args, "-"), nil
}

func fileType(family Family) (string, error) {
	switch family {
	case FamilyStyle:
		return "css", nil
	case FamilyScript:
		return "js", nil
	case FamilyMarkup:
		return "html", nil
	default:
		return "", fmt.Errorf("unknown beautifier family: %s", family)
	}
}

func formatScalar(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

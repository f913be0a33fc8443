// Package suite decodes YAML suite files: variables, setup steps, tests and
// teardown steps, each step naming a keyword and its arguments.
package suite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	yaml "github.com/goccy/go-yaml"

	"github.com/AbhinavRai30/api-framework/internal/pathing"
	"github.com/AbhinavRai30/api-framework/internal/value"
)

// ErrSuite is the sentinel error for malformed suite files.
var ErrSuite = errors.New("suite error")

type Suite struct {
	Name      string  `yaml:"name"`
	Variables Literal `yaml:"variables"`
	Setup     []Step  `yaml:"setup" validate:"dive"`
	Tests     []Test  `yaml:"tests" validate:"required,min=1,dive"`
	Teardown  []Step  `yaml:"teardown" validate:"dive"`

	// Path is the file the suite was loaded from, empty for readers.
	Path string `yaml:"-"`
}

type Test struct {
	Name  string      `yaml:"name" validate:"required"`
	Tags  []string    `yaml:"tags"`
	Data  *DataSource `yaml:"data"`
	Steps []Step      `yaml:"steps" validate:"required,min=1,dive"`
}

// DataSource runs a test once per spreadsheet row, with the row bound to
// the variable "row".
type DataSource struct {
	File  string `yaml:"file" validate:"required"`
	Sheet string `yaml:"sheet" validate:"required"`
}

type Step struct {
	Keyword string    `yaml:"keyword" validate:"required"`
	Args    []Literal `yaml:"args"`
	// Assign names the variable receiving the keyword's return value.
	Assign string `yaml:"assign" validate:"omitempty,varname"`
}

// ArgValues returns the step arguments as values.
func (s Step) ArgValues() []value.Value {
	out := make([]value.Value, len(s.Args))
	for i, a := range s.Args {
		out[i] = a.Value
	}
	return out
}

// HasTag reports whether the test carries tag, ignoring case.
func (t Test) HasTag(tag string) bool {
	return slices.ContainsFunc(t.Tags, func(s string) bool {
		return strings.EqualFold(s, tag)
	})
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return isVarName(fl.Field().String())
	})
	return v
}

func isVarName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Parse decodes and validates one suite document.
func Parse(r io.Reader) (*Suite, error) {
	var s Suite
	if err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty suite", ErrSuite)
		}
		return nil, fmt.Errorf("%w: failed to decode YAML: %v", ErrSuite, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads the suite at path. The suite is named after the file when it
// has no name.
func Load(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuite, err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

func (s *Suite) Validate() error {
	if k := s.Variables.Kind(); k != value.KindNull && k != value.KindMapping {
		return fmt.Errorf("%w: variables must be a mapping, got %s", ErrSuite, k)
	}
	for _, name := range s.Variables.Keys() {
		if !isVarName(name) {
			return fmt.Errorf("%w: invalid variable name %q", ErrSuite, name)
		}
	}

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrSuite, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrSuite, err)
	}
	return nil
}

// ResolvePath resolves a path from the suite file against the suite's
// directory.
func (s *Suite) ResolvePath(p string) string {
	if s.Path == "" {
		return pathing.Resolve(p, "")
	}
	return pathing.Resolve(p, filepath.Dir(s.Path))
}

// Dir is the directory holding the suite file, "." for readers.
func (s *Suite) Dir() string {
	if s.Path == "" {
		return "."
	}
	return filepath.Dir(s.Path)
}

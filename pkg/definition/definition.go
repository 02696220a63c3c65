// Package definition parses cask definitions and evaluates them for a host
// and an install configuration.
package definition

import (
	"fmt"
	"regexp"

	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/model"
	"gopkg.in/yaml.v3"
)

var tokenPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9@._+-]*$`)

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// Variant overrides the download of a definition for one architecture or
// language.
type Variant struct {
	Version string `yaml:"version"`
	SHA256  string `yaml:"sha256"`
	URL     string `yaml:"url"`
	// Default marks the language used when none of the configured ones match.
	Default bool `yaml:"default"`
}

// DependsOnSpec is the raw depends_on stanza.
type DependsOnSpec struct {
	Formula StringList `yaml:"formula"`
	Cask    StringList `yaml:"cask"`
	MacOS   string     `yaml:"macos"`
	Arch    StringList `yaml:"arch"`
}

// ContainerSpec is the raw container stanza.
type ContainerSpec struct {
	Type   string `yaml:"type"`
	Nested string `yaml:"nested"`
}

// ConflictsSpec is the raw conflicts_with stanza.
type ConflictsSpec struct {
	Cask StringList `yaml:"cask"`
}

// Definition is a parsed, not yet evaluated, cask definition.
type Definition struct {
	Token       string                 `yaml:"token"`
	Name        StringList             `yaml:"name"`
	Version     string                 `yaml:"version"`
	SHA256      string                 `yaml:"sha256"`
	URL         string                 `yaml:"url"`
	URLHeaders  map[string]string      `yaml:"url_headers"`
	Homepage    string                 `yaml:"homepage"`
	Caveats     string                 `yaml:"caveats"`
	AutoUpdates bool                   `yaml:"auto_updates"`
	OldTokens   StringList             `yaml:"old_tokens"`
	Container   *ContainerSpec         `yaml:"container"`
	DependsOn   DependsOnSpec          `yaml:"depends_on"`
	Conflicts   ConflictsSpec          `yaml:"conflicts_with"`
	OnArch      map[string]Variant     `yaml:"on_arch"`
	Language    map[string]Variant     `yaml:"language"`
	Artifacts   []map[string]yaml.Node `yaml:"artifacts"`

	// Raw is the source the definition was parsed from.
	Raw    []byte `yaml:"-"`
	Format string `yaml:"-"`
	Path   string `yaml:"-"`
}

// Parse decodes a definition. JSON is accepted as a subset of YAML. When
// the definition carries no token, token is used.
func Parse(data []byte, format, token string) (*Definition, error) {
	if format != model.FormatJSON && format != model.FormatYAML {
		return nil, &errors.UnreadableError{Token: token, Err: fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, format)}
	}
	def := &Definition{}
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, &errors.UnreadableError{Token: token, Err: err}
	}
	if def.Token == "" {
		def.Token = token
	}
	if token != "" && def.Token != token {
		return nil, &errors.InvalidDefinitionError{Token: token, Reason: fmt.Sprintf("declares token '%s'", def.Token)}
	}
	if !tokenPattern.MatchString(def.Token) {
		return nil, &errors.InvalidDefinitionError{Token: def.Token, Reason: "invalid token"}
	}
	if def.Version == "" {
		return nil, &errors.InvalidDefinitionError{Token: def.Token, Reason: "missing version"}
	}
	def.Raw = data
	def.Format = format
	return def, nil
}

package definition

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/glorpus-work/brewcask/pkg/artifact"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/glorpus-work/brewcask/pkg/platform"
	"gopkg.in/yaml.v3"
)

// Evaluate turns a definition into a cask for the given host and config.
// It has no side effects; evaluating again with another config yields a
// new cask.
func Evaluate(def *Definition, cfg *model.Config, p platform.Platform) (*model.Cask, error) {
	if cfg == nil {
		cfg = model.NewConfig(nil)
	}
	c := &model.Cask{
		Token:       def.Token,
		Name:        slices.Clone([]string(def.Name)),
		Version:     def.Version,
		SHA256:      def.SHA256,
		URL:         def.URL,
		Homepage:    def.Homepage,
		Caveats:     def.Caveats,
		AutoUpdates: def.AutoUpdates,
		OldTokens:   slices.Clone([]string(def.OldTokens)),
		Config:      cfg,
		DependsOn: model.DependsOn{
			Formulae: slices.Clone([]string(def.DependsOn.Formula)),
			Casks:    slices.Clone([]string(def.DependsOn.Cask)),
			MacOS:    def.DependsOn.MacOS,
			Arch:     slices.Clone([]string(def.DependsOn.Arch)),
		},
		ConflictsWith: model.ConflictsWith{Casks: slices.Clone([]string(def.Conflicts.Cask))},
		Source:        def.Raw,
		SourceFormat:  def.Format,
		SourcePath:    def.Path,
	}
	if def.Container != nil {
		c.Container = &model.Container{Type: def.Container.Type, Nested: def.Container.Nested}
	}

	for arch, v := range def.OnArch {
		if platform.NormalizeArch(arch) == platform.NormalizeArch(p.Arch) {
			apply(c, v)
		}
	}
	if v, ok := selectLanguage(def.Language, cfg.Languages); ok {
		apply(c, v)
	}

	expand := expander(c, cfg)
	c.URL = expand(c.URL)
	if len(def.URLHeaders) > 0 {
		c.URLHeaders = make(map[string]string, len(def.URLHeaders))
		for k, v := range def.URLHeaders {
			c.URLHeaders[k] = expand(v)
		}
	}

	artifacts, err := buildArtifacts(def, expand)
	if err != nil {
		return nil, err
	}
	c.Artifacts = artifacts
	return c, nil
}

func apply(c *model.Cask, v Variant) {
	if v.Version != "" {
		c.Version = v.Version
	}
	if v.SHA256 != "" {
		c.SHA256 = v.SHA256
	}
	if v.URL != "" {
		c.URL = v.URL
	}
}

// selectLanguage picks the first configured language with a variant, matching
// "de-AT" against "de" as well. Without a match the default variant wins.
func selectLanguage(variants map[string]Variant, languages []string) (Variant, bool) {
	if len(variants) == 0 {
		return Variant{}, false
	}
	for _, lang := range languages {
		if v, ok := variants[lang]; ok {
			return v, true
		}
		if base, _, found := strings.Cut(lang, "-"); found {
			if v, ok := variants[base]; ok {
				return v, true
			}
		}
	}
	keys := make([]string, 0, len(variants))
	for k := range variants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if variants[k].Default {
			return variants[k], true
		}
	}
	return Variant{}, false
}

// expander substitutes {{version}}, {{token}} and the configured
// directories ({{appdir}}, {{binarydir}}, ...).
func expander(c *model.Cask, cfg *model.Config) func(string) string {
	pairs := []string{"{{version}}", c.Version, "{{token}}", c.Token}
	for _, key := range []string{model.DirApp, model.DirBinary, model.DirFont, model.DirService, model.DirPrefPane, model.DirQLPlugin} {
		pairs = append(pairs, "{{"+key+"}}", cfg.Dir(key))
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace
}

func buildArtifacts(def *Definition, expand func(string) string) (*model.ArtifactSet, error) {
	var built []model.Artifact
	seen := map[model.Kind]bool{}

	for i, entry := range def.Artifacts {
		if len(entry) != 1 {
			return nil, invalid(def, "artifact %d must have exactly one kind", i+1)
		}
		for rawKind, node := range entry {
			kind := model.Kind(rawKind)
			if kind.Singular() && seen[kind] {
				return nil, invalid(def, "only one %s stanza is allowed", kind)
			}
			seen[kind] = true

			a, err := buildArtifact(kind, &node, expand)
			if err != nil {
				return nil, invalid(def, "%s: %v", kind, err)
			}
			built = append(built, a)
		}
	}

	if seen[model.KindStageOnly] {
		for k := range seen {
			if k.Activatable() {
				return nil, invalid(def, "stage_only is not allowed with %s", k)
			}
		}
	}

	slices.SortStableFunc(built, func(a, b model.Artifact) int { return a.Kind().Rank() - b.Kind().Rank() })
	return model.NewArtifactSet(built...), nil
}

func invalid(def *Definition, format string, args ...any) error {
	return &errors.InvalidDefinitionError{Token: def.Token, Reason: fmt.Sprintf(format, args...)}
}

type sourceTarget struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type scriptSpec struct {
	Executable string     `yaml:"executable"`
	Args       StringList `yaml:"args"`
	Sudo       bool       `yaml:"sudo"`
}

type directivesSpec struct {
	LaunchCtl StringList `yaml:"launchctl"`
	Quit      StringList `yaml:"quit"`
	Script    yaml.Node  `yaml:"script"`
	PkgUtil   StringList `yaml:"pkgutil"`
	Delete    StringList `yaml:"delete"`
	Trash     StringList `yaml:"trash"`
	Rmdir     StringList `yaml:"rmdir"`
}

type installerSpec struct {
	Manual string    `yaml:"manual"`
	Script yaml.Node `yaml:"script"`
}

func buildArtifact(kind model.Kind, node *yaml.Node, expand func(string) string) (model.Artifact, error) {
	switch kind {
	case model.KindApp, model.KindSuite, model.KindPrefPane, model.KindQLPlugin, model.KindFont, model.KindService:
		st, err := decodeSourceTarget(node)
		if err != nil {
			return nil, err
		}
		return artifact.NewMoved(kind, expand(st.Source), expand(st.Target))
	case model.KindBinary:
		st, err := decodeSourceTarget(node)
		if err != nil {
			return nil, err
		}
		return artifact.NewBinary(expand(st.Source), expand(st.Target))
	case model.KindPkg:
		var path string
		if err := node.Decode(&path); err != nil {
			return nil, err
		}
		return &artifact.Pkg{Path: expand(path)}, nil
	case model.KindInstaller:
		var spec installerSpec
		if err := node.Decode(&spec); err != nil {
			return nil, err
		}
		if spec.Manual != "" {
			return &artifact.ScriptInstaller{Manual: expand(spec.Manual)}, nil
		}
		script, err := decodeScript(&spec.Script, expand)
		if err != nil {
			return nil, err
		}
		if script == nil {
			return nil, fmt.Errorf("needs either manual or script")
		}
		return &artifact.ScriptInstaller{Executable: script.Executable, Args: script.Args, Sudo: script.Sudo}, nil
	case model.KindPreflight, model.KindPostflight, model.KindUninstallPreflight, model.KindUninstallPostflight:
		var body string
		if err := node.Decode(&body); err != nil {
			return nil, err
		}
		return newBlock(kind, body), nil
	case model.KindUninstall:
		d, err := decodeDirectives(node, expand)
		if err != nil {
			return nil, err
		}
		return &artifact.Uninstall{Directives: d}, nil
	case model.KindZap:
		d, err := decodeDirectives(node, expand)
		if err != nil {
			return nil, err
		}
		return &artifact.Zap{Directives: d}, nil
	case model.KindStageOnly:
		var on bool
		if err := node.Decode(&on); err != nil || !on {
			return nil, fmt.Errorf("must be true")
		}
		return artifact.StageOnly{}, nil
	}
	return nil, fmt.Errorf("unknown artifact kind")
}

func newBlock(kind model.Kind, body string) model.Artifact {
	switch kind {
	case model.KindPreflight:
		return artifact.NewPreflight(body)
	case model.KindPostflight:
		return artifact.NewPostflight(body)
	case model.KindUninstallPreflight:
		return artifact.NewUninstallPreflight(body)
	default:
		return artifact.NewUninstallPostflight(body)
	}
}

func decodeSourceTarget(node *yaml.Node) (sourceTarget, error) {
	var st sourceTarget
	if node.Kind == yaml.ScalarNode {
		st.Source = node.Value
		return st, nil
	}
	err := node.Decode(&st)
	return st, err
}

func decodeScript(node *yaml.Node, expand func(string) string) (*artifact.ScriptDirective, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		return &artifact.ScriptDirective{Executable: expand(node.Value)}, nil
	}
	var spec scriptSpec
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	if spec.Executable == "" {
		return nil, fmt.Errorf("script needs an executable")
	}
	return &artifact.ScriptDirective{Executable: expand(spec.Executable), Args: expandAll(spec.Args, expand), Sudo: spec.Sudo}, nil
}

func decodeDirectives(node *yaml.Node, expand func(string) string) (artifact.Directives, error) {
	var spec directivesSpec
	if err := node.Decode(&spec); err != nil {
		return artifact.Directives{}, err
	}
	script, err := decodeScript(&spec.Script, expand)
	if err != nil {
		return artifact.Directives{}, err
	}
	return artifact.Directives{
		LaunchCtl: spec.LaunchCtl,
		Quit:      spec.Quit,
		Script:    script,
		PkgUtil:   spec.PkgUtil,
		Delete:    expandAll(spec.Delete, expand),
		Trash:     expandAll(spec.Trash, expand),
		Rmdir:     expandAll(spec.Rmdir, expand),
	}, nil
}

func expandAll(values []string, expand func(string) string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = expand(v)
	}
	return out
}

package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/brewcask/pkg/artifact"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/glorpus-work/brewcask/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooYAML = `
token: foo
name: Foo
version: "1.2.3"
sha256: 0123abcd
url: https://example.com/foo-{{version}}.dmg
url_headers:
  X-Release: "{{version}}"
homepage: https://example.com
depends_on:
  cask: bar
  formula: [jq]
  macos: ">= 12"
conflicts_with:
  cask: foo-beta
on_arch:
  arm64:
    url: https://example.com/foo-{{version}}-arm.dmg
    sha256: armsum
artifacts:
  - binary: "{{appdir}}/Foo.app/Contents/MacOS/foo"
  - zap:
      trash: ~/Library/Preferences/com.example.foo.plist
  - app: Foo.app
  - uninstall:
      quit: com.example.foo
      script:
        executable: uninstall.sh
        args: ["--version", "{{version}}"]
        sudo: true
  - preflight: |
      log := import("log")
`

func intel() platform.Platform { return platform.Platform{OS: "darwin", Arch: "x86_64"} }

func parseFoo(t *testing.T) *Definition {
	t.Helper()
	def, err := Parse([]byte(fooYAML), model.FormatYAML, "foo")
	require.NoError(t, err)
	return def
}

func TestParse(t *testing.T) {
	def := parseFoo(t)
	assert.Equal(t, "foo", def.Token)
	assert.Equal(t, StringList{"Foo"}, def.Name)
	assert.Equal(t, StringList{"bar"}, def.DependsOn.Cask)
	assert.Equal(t, StringList{"jq"}, def.DependsOn.Formula)
	assert.Len(t, def.Artifacts, 5)
	assert.Equal(t, model.FormatYAML, def.Format)
}

func TestParse_JSON(t *testing.T) {
	def, err := Parse([]byte(`{"version": "2.0", "artifacts": [{"app": "Bar.app"}]}`), model.FormatJSON, "bar")
	require.NoError(t, err)
	assert.Equal(t, "bar", def.Token)
	assert.Equal(t, "2.0", def.Version)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  string
		token   string
		wantErr any
	}{
		{"unknown format", "version: 1", "toml", "foo", &errors.UnreadableError{}},
		{"malformed", "version: [", model.FormatYAML, "foo", &errors.UnreadableError{}},
		{"token mismatch", "token: bar\nversion: 1", model.FormatYAML, "foo", &errors.InvalidDefinitionError{}},
		{"invalid token", "version: 1", model.FormatYAML, "Foo Bar", &errors.InvalidDefinitionError{}},
		{"missing version", "url: https://example.com", model.FormatYAML, "foo", &errors.InvalidDefinitionError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format, tt.token)
			require.Error(t, err)
			switch want := tt.wantErr.(type) {
			case *errors.UnreadableError:
				assert.ErrorAs(t, err, &want)
			case *errors.InvalidDefinitionError:
				assert.ErrorAs(t, err, &want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	cfg := model.NewConfig(map[string]string{model.DirApp: "/Applications", model.DirBinary: "/usr/local/bin"})
	c, err := Evaluate(parseFoo(t), cfg, intel())
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/foo-1.2.3.dmg", c.URL)
	assert.Equal(t, "0123abcd", c.SHA256)
	assert.Equal(t, map[string]string{"X-Release": "1.2.3"}, c.URLHeaders)
	assert.Equal(t, []string{"bar"}, c.DependsOn.Casks)
	assert.Equal(t, ">= 12", c.DependsOn.MacOS)
	assert.Equal(t, []string{"foo-beta"}, c.ConflictsWith.Casks)
	assert.Same(t, cfg, c.Config)

	kinds := make([]model.Kind, 0, c.Artifacts.Len())
	for _, a := range c.Artifacts.All() {
		kinds = append(kinds, a.Kind())
	}
	assert.Equal(t, []model.Kind{model.KindPreflight, model.KindUninstall, model.KindApp, model.KindBinary, model.KindZap}, kinds)

	bin := c.ArtifactsOfKind(model.KindBinary)[0].(*artifact.Binary)
	assert.Equal(t, "/Applications/Foo.app/Contents/MacOS/foo", bin.Source)
	assert.Equal(t, "foo", bin.Target)

	u := c.ArtifactsOfKind(model.KindUninstall)[0].(*artifact.Uninstall)
	require.NotNil(t, u.Script)
	assert.Equal(t, []string{"--version", "1.2.3"}, u.Script.Args)
	assert.True(t, u.Script.Sudo)
	assert.Equal(t, []string{"com.example.foo"}, u.Quit)
}

func TestEvaluate_OnArch(t *testing.T) {
	c, err := Evaluate(parseFoo(t), nil, platform.Platform{OS: "darwin", Arch: "aarch64"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/foo-1.2.3-arm.dmg", c.URL)
	assert.Equal(t, "armsum", c.SHA256)
}

func TestEvaluate_ConfigChangeYieldsNewCask(t *testing.T) {
	def := parseFoo(t)
	a, err := Evaluate(def, model.NewConfig(map[string]string{model.DirApp: "/Applications"}), intel())
	require.NoError(t, err)
	cfg := model.NewConfig(map[string]string{model.DirApp: "/Applications"})
	cfg.Explicit[model.DirApp] = "/Users/me/Applications"
	b, err := Evaluate(def, cfg, intel())
	require.NoError(t, err)

	binA := a.ArtifactsOfKind(model.KindBinary)[0].(*artifact.Binary)
	binB := b.ArtifactsOfKind(model.KindBinary)[0].(*artifact.Binary)
	assert.Equal(t, "/Applications/Foo.app/Contents/MacOS/foo", binA.Source)
	assert.Equal(t, "/Users/me/Applications/Foo.app/Contents/MacOS/foo", binB.Source)
}

func TestEvaluate_Language(t *testing.T) {
	def, err := Parse([]byte(`
version: "1.0"
language:
  en:
    url: https://example.com/en.zip
    default: true
  de:
    version: "1.0-de"
    url: https://example.com/de.zip
`), model.FormatYAML, "lang")
	require.NoError(t, err)

	c, err := Evaluate(def, nil, intel())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/en.zip", c.URL)

	cfg := model.NewConfig(nil)
	cfg.Languages = []string{"fr", "de-AT"}
	c, err = Evaluate(def, cfg, intel())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/de.zip", c.URL)
	assert.Equal(t, "1.0-de", c.Version)
}

func TestEvaluate_Installer(t *testing.T) {
	def, err := Parse([]byte(`
version: "1.0"
artifacts:
  - installer:
      script:
        executable: Install.app/Contents/MacOS/install
        args: [--silent]
        sudo: true
`), model.FormatYAML, "inst")
	require.NoError(t, err)
	c, err := Evaluate(def, nil, intel())
	require.NoError(t, err)
	inst := c.ArtifactsOfKind(model.KindInstaller)[0].(*artifact.ScriptInstaller)
	assert.Equal(t, "Install.app/Contents/MacOS/install", inst.Executable)
	assert.Equal(t, []string{"--silent"}, inst.Args)
	assert.True(t, inst.Sudo)
}

func TestEvaluate_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		artifacts string
	}{
		{"duplicate uninstall", "[{uninstall: {quit: a}}, {uninstall: {quit: b}}]"},
		{"stage_only with app", "[{stage_only: true}, {app: Foo.app}]"},
		{"stage_only false", "[{stage_only: false}]"},
		{"unknown kind", "[{widget: Foo}]"},
		{"two kinds in one entry", "[{app: Foo.app, binary: foo}]"},
		{"installer without script", "[{installer: {}}]"},
		{"app without source", "[{app: {target: Foo.app}}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse([]byte("version: '1'\nartifacts: "+tt.artifacts), model.FormatYAML, "bad")
			require.NoError(t, err)
			_, err = Evaluate(def, nil, intel())
			var invalid *errors.InvalidDefinitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "bad", invalid.Token)
		})
	}
}

func TestEvaluate_DuplicateArtifactsCollapse(t *testing.T) {
	def, err := Parse([]byte("version: '1'\nartifacts: [{app: Foo.app}, {app: Foo.app}]"), model.FormatYAML, "dup")
	require.NoError(t, err)
	c, err := Evaluate(def, nil, intel())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Artifacts.Len())
}

func writeTap(t *testing.T, taps, tap, token, body string) string {
	t.Helper()
	dir := filepath.Join(taps, tap, "Casks")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, token+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileLoader_Load(t *testing.T) {
	taps := t.TempDir()
	path := writeTap(t, taps, "homebrew/cask", "foo", fooYAML)
	writeTap(t, taps, "acme/tools", "renamed", "version: '3.0'\nold_tokens: [legacy]\n")
	l := NewFileLoader(taps, "/opt/caskroom", intel(), map[string]string{model.DirApp: "/Applications"})

	c, err := l.Load("foo", nil)
	require.NoError(t, err)
	assert.Equal(t, "/opt/caskroom", c.Caskroom)
	assert.Equal(t, path, c.SourcePath)
	assert.Equal(t, model.FormatYAML, c.SourceFormat)
	assert.Equal(t, "/Applications", c.Config.Dir(model.DirApp))

	c, err = l.Load("homebrew/cask/foo", nil)
	require.NoError(t, err)
	assert.Equal(t, "foo", c.Token)

	c, err = l.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", c.Version)

	c, err = l.Load("legacy", nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", c.Token)

	var unavailable *errors.UnavailableError
	_, err = l.Load("missing", nil)
	require.ErrorAs(t, err, &unavailable)
	_, err = l.Load("acme/tools/foo", nil)
	require.ErrorAs(t, err, &unavailable)
	_, err = l.Load(filepath.Join(taps, "nope.yaml"), nil)
	require.ErrorAs(t, err, &unavailable)
}

func TestFileLoader_NoTapsDir(t *testing.T) {
	l := NewFileLoader(filepath.Join(t.TempDir(), "absent"), "/opt/caskroom", intel(), nil)
	var unavailable *errors.UnavailableError
	_, err := l.Load("foo", nil)
	require.ErrorAs(t, err, &unavailable)
}

func TestFileLoader_LoadInstalledAndReevaluate(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "foo.yaml")
	require.NoError(t, os.WriteFile(snapshot, []byte(fooYAML), 0o644))
	l := NewFileLoader(dir, "/opt/caskroom", intel(), nil)

	cfg := model.NewConfig(nil)
	cfg.Explicit[model.DirApp] = "/Custom"
	c, err := l.LoadInstalled(snapshot, cfg)
	require.NoError(t, err)
	assert.Equal(t, "/Custom/Foo.app/Contents/MacOS/foo", c.ArtifactsOfKind(model.KindBinary)[0].(*artifact.Binary).Source)

	other := model.NewConfig(nil)
	other.Explicit[model.DirApp] = "/Other"
	re, err := l.Reevaluate(c, other)
	require.NoError(t, err)
	assert.NotSame(t, c, re)
	assert.Equal(t, "/Other/Foo.app/Contents/MacOS/foo", re.ArtifactsOfKind(model.KindBinary)[0].(*artifact.Binary).Source)
	assert.Equal(t, snapshot, re.SourcePath)
}

package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/brewcask/pkg/command"
	cmdmocks "github.com/glorpus-work/brewcask/pkg/command/mocks"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(p, 0o755))
	}
}

func TestUninstall_DeleteTrashRmdir(t *testing.T) {
	f := newFixture(t)
	home := f.ac.HomeDir
	support := filepath.Join(home, "Library", "Application Support", "Foo")
	caches := filepath.Join(home, "Library", "Caches", "com.example.foo")
	logs := filepath.Join(home, "Library", "Logs", "Foo")
	mkdirs(t, support, caches, logs)
	require.NoError(t, os.WriteFile(filepath.Join(logs, ".DS_Store"), nil, 0o644))

	u := &Uninstall{Directives{
		Delete: []string{"~/Library/Application Support/Foo", "~/Library/Missing"},
		Trash:  []string{"~/Library/Caches/com.example.*"},
		Rmdir:  []string{"~/Library/Logs/Foo"},
	}}
	ctx := context.Background()

	require.NoError(t, u.Uninstall(ctx, f.ac))
	assert.NoDirExists(t, support)
	assert.NoDirExists(t, caches)
	assert.DirExists(t, filepath.Join(f.ac.TrashDir, "com.example.foo"))
	assert.DirExists(t, logs, "rmdir waits for the post-uninstall phase")

	require.NoError(t, u.PostUninstall(ctx, f.ac))
	assert.NoDirExists(t, logs)
}

func TestUninstall_KeepsPathsOfSuccessor(t *testing.T) {
	f := newFixture(t)
	shared := filepath.Join(f.ac.HomeDir, "Library", "Shared")
	own := filepath.Join(f.ac.HomeDir, "Library", "Own")
	mkdirs(t, shared, own)

	u := &Uninstall{Directives{Delete: []string{"~/Library/Shared", "~/Library/Own"}}}
	f.ac.Successor = &model.Cask{
		Token:     "foo",
		Version:   "2.0",
		Artifacts: model.NewArtifactSet(&Uninstall{Directives{Delete: []string{"~/Library/Shared"}}}),
	}

	require.NoError(t, u.Uninstall(context.Background(), f.ac))
	assert.DirExists(t, shared)
	assert.NoDirExists(t, own)
}

func TestUninstall_RefusesProtectedAndRelativePaths(t *testing.T) {
	f := newFixture(t)
	mkdirs(t, filepath.Join(f.ac.HomeDir, "Library"))

	require.NoError(t, (&Uninstall{Directives{Delete: []string{"~/Library"}}}).Uninstall(context.Background(), f.ac))
	assert.DirExists(t, filepath.Join(f.ac.HomeDir, "Library"))

	err := (&Uninstall{Directives{Delete: []string{"relative/path"}}}).Uninstall(context.Background(), f.ac)
	assert.Error(t, err)
}

func TestUninstall_TrashNameCollision(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.ac.HomeDir, "Foo")
	mkdirs(t, target, filepath.Join(f.ac.TrashDir, "Foo"))

	require.NoError(t, (&Uninstall{Directives{Trash: []string{target}}}).Uninstall(context.Background(), f.ac))
	assert.DirExists(t, filepath.Join(f.ac.TrashDir, "Foo 2"))
}

func TestUninstall_LaunchCtl(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := cmdmocks.NewMockRunner(ctrl)
	f := newFixture(t)
	f.ac.Runner = runner
	plist := filepath.Join(f.ac.HomeDir, "Library", "LaunchAgents", "com.example.foo.plist")
	mkdirs(t, filepath.Dir(plist))
	require.NoError(t, os.WriteFile(plist, nil, 0o644))

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/bin/launchctl", Args: []string{"list", "com.example.foo"}}).
			Return(command.Result{}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/bin/launchctl", Args: []string{"remove", "com.example.foo"}}).
			Return(command.Result{}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/bin/launchctl", Args: []string{"list", "com.example.foo"}, Sudo: true}).
			Return(command.Result{ExitCode: 113}, errors.New("not loaded")),
	)

	require.NoError(t, (&Uninstall{Directives{LaunchCtl: []string{"com.example.foo"}}}).Uninstall(context.Background(), f.ac))
	assert.NoFileExists(t, plist)
}

func TestUninstall_PkgUtil(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := cmdmocks.NewMockRunner(ctrl)
	f := newFixture(t)
	f.ac.Runner = runner

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/usr/sbin/pkgutil", Args: []string{"--pkgs=com.example.foo.*"}}).
			Return(command.Result{Stdout: "com.example.foo.core\n"}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/usr/sbin/pkgutil", Args: []string{"--only-files", "--files", "com.example.foo.core"}}).
			Return(command.Result{Stdout: "usr/local/foo/bin/foo\nusr/local/foo/share/doc\n"}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/bin/rm", Args: []string{"-f", "--", "/usr/local/foo/bin/foo", "/usr/local/foo/share/doc"}, Sudo: true}).
			Return(command.Result{}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/usr/sbin/pkgutil", Args: []string{"--only-dirs", "--files", "com.example.foo.core"}}).
			Return(command.Result{Stdout: "usr/local\nusr/local/foo\nusr/local/foo/bin\n"}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/bin/rmdir", Args: []string{"--", "/usr/local/foo/bin"}, Sudo: true}).
			Return(command.Result{}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/bin/rmdir", Args: []string{"--", "/usr/local/foo"}, Sudo: true}).
			Return(command.Result{}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "/usr/sbin/pkgutil", Args: []string{"--forget", "com.example.foo.core"}, Sudo: true}).
			Return(command.Result{}, nil),
	)

	require.NoError(t, (&Uninstall{Directives{PkgUtil: []string{"com.example.foo.*"}}}).Uninstall(context.Background(), f.ac))
}

func TestUninstall_PkgUtilWithoutReceipts(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := cmdmocks.NewMockRunner(ctrl)
	f := newFixture(t)
	f.ac.Runner = runner

	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(command.Result{ExitCode: 1}, errors.New("no receipts"))
	require.NoError(t, (&Uninstall{Directives{PkgUtil: []string{"com.example.none"}}}).Uninstall(context.Background(), f.ac))
}

func TestUninstall_ScriptFailureStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := cmdmocks.NewMockRunner(ctrl)
	f := newFixture(t)
	f.ac.Runner = runner
	keep := filepath.Join(f.ac.HomeDir, "Keep")
	mkdirs(t, keep)

	runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: filepath.Join(f.ac.Cask.StagedPath(), "uninstall.sh"), Args: []string{"-y"}, Sudo: true}).
		Return(command.Result{ExitCode: 1}, errors.New("failed"))

	u := &Uninstall{Directives{
		Script: &ScriptDirective{Executable: "uninstall.sh", Args: []string{"-y"}, Sudo: true},
		Delete: []string{keep},
	}}
	require.Error(t, u.Uninstall(context.Background(), f.ac))
	assert.DirExists(t, keep)
}

func TestZap(t *testing.T) {
	f := newFixture(t)
	prefs := filepath.Join(f.ac.HomeDir, "Library", "Preferences", "com.example.foo.plist")
	empty := filepath.Join(f.ac.HomeDir, "Library", "Foo")
	mkdirs(t, filepath.Dir(prefs), empty)
	require.NoError(t, os.WriteFile(prefs, nil, 0o644))
	f.ac.Successor = &model.Cask{Artifacts: model.NewArtifactSet(&Uninstall{Directives{Trash: []string{prefs}}})}

	z := &Zap{Directives{Trash: []string{prefs}, Rmdir: []string{empty}}}
	require.NoError(t, z.Zap(context.Background(), f.ac))
	assert.NoFileExists(t, prefs, "zap ignores the successor")
	assert.NoDirExists(t, empty)
}

func TestDirectives_KeyAndEmpty(t *testing.T) {
	assert.True(t, Directives{}.Empty())
	a := Directives{Delete: []string{"/a"}}
	b := Directives{Trash: []string{"/a"}}
	assert.False(t, a.Empty())
	assert.NotEqual(t, a.key(), b.key())
	assert.Equal(t, a.key(), Directives{Delete: []string{"/a"}}.key())
}

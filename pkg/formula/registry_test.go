package formula

import (
	"context"
	"errors"
	"testing"

	"github.com/glorpus-work/brewcask/pkg/command"
	"github.com/glorpus-work/brewcask/pkg/command/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const jqInfo = `{
  "formulae": [
    {
      "name": "jq",
      "dependencies": ["oniguruma"],
      "installed": [{"version": "1.6"}, {"version": "1.7.1"}],
      "linked_keg": "1.7.1"
    }
  ],
  "casks": []
}`

func infoCmd(name string) command.Cmd {
	return command.Cmd{Name: "brew", Args: []string{"info", "--json=v2", "--formula", name}}
}

func TestBrewRegistry_CachesInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), infoCmd("jq")).Return(command.Result{Stdout: jqInfo}, nil).Times(1)

	r := NewBrewRegistry(runner, "")
	ctx := context.Background()

	deps, err := r.Dependencies(ctx, "jq")
	require.NoError(t, err)
	assert.Equal(t, []string{"oniguruma"}, deps)
	assert.True(t, r.IsInstalled(ctx, "jq"))
	assert.True(t, r.IsLinked(ctx, "jq"))
}

func TestBrewRegistry_InstalledButNotLinked(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), infoCmd("python")).Return(command.Result{Stdout: `{"formulae": [
		{"name": "python", "dependencies": [], "installed": [{"version": "3.12.1"}], "linked_keg": null}
	]}`}, nil)

	r := NewBrewRegistry(runner, "brew")
	assert.True(t, r.IsInstalled(context.Background(), "python"))
	assert.False(t, r.IsLinked(context.Background(), "python"))
}

func TestBrewRegistry_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), infoCmd("nope")).Return(command.Result{ExitCode: 1}, errors.New("No available formula"))
	runner.EXPECT().Run(gomock.Any(), infoCmd("garbled")).Return(command.Result{Stdout: "not json"}, nil)
	runner.EXPECT().Run(gomock.Any(), infoCmd("empty")).Return(command.Result{Stdout: `{"formulae": []}`}, nil)

	r := NewBrewRegistry(runner, "")
	ctx := context.Background()

	_, err := r.Dependencies(ctx, "nope")
	assert.Error(t, err)
	assert.False(t, r.IsInstalled(ctx, "garbled"))
	assert.False(t, r.IsLinked(ctx, "empty"))
}

func TestBrewRegistry_InstallInvalidatesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), infoCmd("jq")).Return(command.Result{Stdout: `{"formulae": [{"name": "jq", "installed": []}]}`}, nil),
		runner.EXPECT().Run(gomock.Any(), command.Cmd{Name: "brew", Args: []string{"install", "--formula", "jq"}, Env: []string{"HOMEBREW_NO_AUTO_UPDATE=1"}}).
			Return(command.Result{}, nil),
		runner.EXPECT().Run(gomock.Any(), infoCmd("jq")).Return(command.Result{Stdout: jqInfo}, nil),
	)

	r := NewBrewRegistry(runner, "")
	ctx := context.Background()
	assert.False(t, r.IsInstalled(ctx, "jq"))
	require.NoError(t, r.Install(ctx, "jq"))
	assert.True(t, r.IsInstalled(ctx, "jq"))
	require.NoError(t, r.Install(ctx))
}

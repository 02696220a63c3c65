package artifact

import (
	"context"
	"fmt"

	"github.com/glorpus-work/brewcask/pkg/hook"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// block is a script stanza run through the hook executor.
type block struct {
	kind  model.Kind
	Body  string
	phase hook.Phase
}

func (b *block) Kind() model.Kind { return b.kind }
func (b *block) Key() string      { return b.Body }
func (b *block) String() string   { return fmt.Sprintf("%s block", b.kind) }

func (b *block) run(ctx context.Context, ac *Context) error {
	if ac.Scripts == nil {
		return fmt.Errorf("no script executor for %s", b.kind)
	}
	return ac.Scripts.Execute(ctx, b.Body, ac.hookContext(b.phase))
}

// Preflight runs before the other artifacts are installed.
type Preflight struct{ block }

// Postflight runs after the other artifacts are installed.
type Postflight struct{ block }

// UninstallPreflight runs before the other artifacts are uninstalled.
type UninstallPreflight struct{ block }

// UninstallPostflight runs once every artifact has been uninstalled.
type UninstallPostflight struct{ block }

// NewPreflight returns a preflight block.
func NewPreflight(body string) *Preflight {
	return &Preflight{block{kind: model.KindPreflight, Body: body, phase: hook.PhasePreflight}}
}

// NewPostflight returns a postflight block.
func NewPostflight(body string) *Postflight {
	return &Postflight{block{kind: model.KindPostflight, Body: body, phase: hook.PhasePostflight}}
}

// NewUninstallPreflight returns an uninstall_preflight block.
func NewUninstallPreflight(body string) *UninstallPreflight {
	return &UninstallPreflight{block{kind: model.KindUninstallPreflight, Body: body, phase: hook.PhaseUninstallPreflight}}
}

// NewUninstallPostflight returns an uninstall_postflight block.
func NewUninstallPostflight(body string) *UninstallPostflight {
	return &UninstallPostflight{block{kind: model.KindUninstallPostflight, Body: body, phase: hook.PhaseUninstallPostflight}}
}

func (b *Preflight) Install(ctx context.Context, ac *Context) error  { return b.run(ctx, ac) }
func (b *Postflight) Install(ctx context.Context, ac *Context) error { return b.run(ctx, ac) }

func (b *UninstallPreflight) Uninstall(ctx context.Context, ac *Context) error { return b.run(ctx, ac) }

func (b *UninstallPostflight) PostUninstall(ctx context.Context, ac *Context) error {
	return b.run(ctx, ac)
}

// StageOnly marks a cask that is only staged. It has no capabilities.
type StageOnly struct{}

func (StageOnly) Kind() model.Kind { return model.KindStageOnly }
func (StageOnly) Key() string      { return "true" }
func (StageOnly) String() string   { return "stage_only" }

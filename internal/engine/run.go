package engine

// run.go - one build: prepare a fresh device, emit, compile, record

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/b2genn/internal/device"
	"github.com/leapstack-labs/b2genn/internal/network"
	"github.com/leapstack-labs/b2genn/internal/starlark"
	"github.com/leapstack-labs/b2genn/internal/state"
	"github.com/leapstack-labs/b2genn/internal/writer"
)

// Prepared is a network replayed onto a device, ready to build.
type Prepared struct {
	Description *network.Description
	Model       *network.Model
	Device      *device.Device
}

// Result is the outcome of Build.
type Result struct {
	// Build is the recorded build, nil when history is disabled.
	Build  *state.Build
	Output *device.BuildResult
}

// Prepare loads the network and setup script onto a new device without
// emitting anything.
func (e *Engine) Prepare(ctx context.Context) (*Prepared, error) {
	return e.prepare(ctx, nil)
}

func (e *Engine) prepare(ctx context.Context, recorder writer.Recorder) (*Prepared, error) {
	desc, err := network.Load(e.cfg.Network)
	if err != nil {
		return nil, err
	}
	if e.cfg.Duration > 0 {
		d := e.cfg.Duration
		desc.Duration = &d
	}

	dev := device.New(device.Config{
		Toolchain: e.cfg.Toolchain.ToDevice(),
		Commands:  e.commands,
		Recorder:  recorder,
		Logger:    e.logger,
	})

	model, err := network.Prepare(desc, dev)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare network %s: %w", desc.Name, err)
	}

	if e.cfg.Setup != "" {
		if err := starlark.RunSetup(ctx, e.cfg.Setup, dev, model, e.logger); err != nil {
			return nil, err
		}
	}

	return &Prepared{Description: desc, Model: model, Device: dev}, nil
}

// Build runs the full pipeline with a fresh device. Every call is
// independent, so a watcher can call it repeatedly.
func (e *Engine) Build(ctx context.Context) (*Result, error) {
	res := &Result{}

	var recorder writer.Recorder
	if e.store != nil {
		b, err := e.store.StartBuild(e.cfg.ProjectDir, e.cfg.Network)
		if err != nil {
			return nil, err
		}
		res.Build = b
		recorder = e.store.Recorder(b.ID)
		e.logger.Debug("created build", "build_id", b.ID)
	}

	out, err := e.build(ctx, recorder)
	res.Output = out

	if res.Build != nil {
		status, msg := state.BuildStatusCompleted, ""
		if err != nil {
			status, msg = state.BuildStatusFailed, err.Error()
		}
		if cerr := e.store.CompleteBuild(res.Build.ID, status, msg); cerr != nil {
			e.logger.Warn("failed to record build status", "build_id", res.Build.ID, "error", cerr)
		}
		if b, gerr := e.store.GetBuild(res.Build.ID); gerr == nil {
			res.Build = b
		}
	}

	if err != nil {
		e.logger.Info("build failed", "network", e.cfg.Network, "error", err.Error())
		return res, err
	}
	return res, nil
}

func (e *Engine) build(ctx context.Context, recorder writer.Recorder) (*device.BuildResult, error) {
	p, err := e.prepare(ctx, recorder)
	if err != nil {
		return nil, err
	}

	run := e.cfg.Run && e.cfg.Compile
	if e.cfg.Run && !e.cfg.Compile {
		e.logger.Debug("skipping run: project is not compiled")
	}

	return p.Device.Build(ctx, device.BuildOptions{
		ProjectDir: e.cfg.ProjectDir,
		Compile:    e.cfg.Compile,
		Run:        run,
		UseGPU:     e.cfg.UseGPU,
	})
}

// Package core wires the snapshot-builder pipeline end to end: path
// resolution, discovery, assembly, dependency resolution, artifact output,
// and history recording, driven by a single config.Settings per spec.md
// §6.4's invocation contract. This is the layer cmd/sysdmap calls into,
// grounded on the teacher's cmd-level orchestration split out into its own
// testable package rather than left inline in cobra RunE closures.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/trly/sysdmap/internal/artifact"
	"github.com/trly/sysdmap/internal/config"
	"github.com/trly/sysdmap/internal/dependency"
	"github.com/trly/sysdmap/internal/diag"
	"github.com/trly/sysdmap/internal/enrich"
	"github.com/trly/sysdmap/internal/history"
	"github.com/trly/sysdmap/internal/log"
	"github.com/trly/sysdmap/internal/model"
	"github.com/trly/sysdmap/internal/mstruct"
	"github.com/trly/sysdmap/internal/pathresolver"
)

// ToolVersion is stamped into every artifact's meta.tool_version and every
// history row's tool_version column.
const ToolVersion = "0.1.0"

// Result carries what a run produced, for a caller to report or inspect.
type Result struct {
	MS       *model.MS
	DM       *model.DM
	Warnings []diag.Warning
}

// Clock returns the current time. Tests substitute a fixed clock so
// artifact/history timestamps are deterministic.
type Clock func() time.Time

// Run executes the action named by cfg.Action against the pipeline,
// writing whatever artifacts that action implies and, if hist is non-nil,
// recording a row in the run ledger.
func Run(ctx context.Context, cfg *config.Settings, reg *enrich.Registry, hist *history.Store, now Clock) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	logger := log.GetLogger()

	var res Result

	switch cfg.Action {
	case config.ActionBuildMaster:
		ms, warnings, err := buildMaster(ctx, cfg, reg)
		if err != nil {
			return nil, err
		}
		res.MS, res.Warnings = ms, warnings
		stampMSMeta(ms, cfg, now)
		if err := artifact.WriteMS(artifact.MSPath(cfg.OutputPrefix), ms, cfg.ForceOverwrite); err != nil {
			return nil, err
		}
		logger.Info("wrote master structure", "units", len(ms.Units), "warnings", len(warnings))

	case config.ActionBuildDeps:
		ms, err := artifact.ReadMS(cfg.MSPath)
		if err != nil {
			return nil, err
		}
		dm, err := dependency.Resolve(ms, cfg.TargetUnit, cfg.DepthLimit)
		if err != nil {
			return nil, err
		}
		res.MS, res.DM = ms, dm
		stampDMMeta(dm, cfg, now)
		if err := artifact.WriteDM(artifact.DMPath(cfg.OutputPrefix), dm, cfg.ForceOverwrite); err != nil {
			return nil, err
		}
		logger.Info("wrote dependency map", "root", dm.Root, "nodes", len(dm.Nodes))

	case config.ActionBuildBoth:
		ms, warnings, err := buildMaster(ctx, cfg, reg)
		if err != nil {
			return nil, err
		}
		dm, err := dependency.Resolve(ms, cfg.TargetUnit, cfg.DepthLimit)
		if err != nil {
			return nil, err
		}
		res.MS, res.DM, res.Warnings = ms, dm, warnings
		stampMSMeta(ms, cfg, now)
		stampDMMeta(dm, cfg, now)
		if err := artifact.WriteMS(artifact.MSPath(cfg.OutputPrefix), ms, cfg.ForceOverwrite); err != nil {
			return nil, err
		}
		if err := artifact.WriteDM(artifact.DMPath(cfg.OutputPrefix), dm, cfg.ForceOverwrite); err != nil {
			return nil, err
		}
		logger.Info("wrote master structure and dependency map", "units", len(ms.Units), "nodes", len(dm.Nodes))

	default:
		return nil, fmt.Errorf("unknown action %q", cfg.Action)
	}

	if hist != nil {
		if err := recordHistory(hist, cfg, &res, now); err != nil {
			logger.Warn("failed to record run history", "error", err)
		}
	}

	return &res, nil
}

func buildMaster(ctx context.Context, cfg *config.Settings, reg *enrich.Registry) (*model.MS, []diag.Warning, error) {
	resolver := pathresolver.New(cfg.RootPath)
	ms, warnings, err := mstruct.AssembleWithOptions(ctx, cfg.RootPath, resolver.SearchPaths(), reg)
	if err != nil {
		return nil, warnings, err
	}
	logger := log.GetLogger()
	for _, w := range warnings {
		logger.Warn(w.Message, "code", w.Code, "unit", w.Unit)
		ms.Meta.Warnings = append(ms.Meta.Warnings, w.Error())
		if u, ok := ms.Units[w.Unit]; ok {
			u.Warnings = append(u.Warnings, w.Error())
		}
	}
	return ms, warnings, nil
}

func stampMSMeta(ms *model.MS, cfg *config.Settings, now Clock) {
	ms.Meta.RootPath = cfg.RootPath
	ms.Meta.ToolVersion = ToolVersion
	ms.Meta.GeneratedAt = now().UTC().Format(time.RFC3339)
}

func stampDMMeta(dm *model.DM, cfg *config.Settings, now Clock) {
	dm.Meta.MSPath = cfg.MSPath
	if dm.Meta.MSPath == "" {
		dm.Meta.MSPath = artifact.MSPath(cfg.OutputPrefix)
	}
	dm.Meta.ToolVersion = ToolVersion
	dm.Meta.GeneratedAt = now().UTC().Format(time.RFC3339)
}

func recordHistory(hist *history.Store, cfg *config.Settings, res *Result, now Clock) error {
	run := history.Run{
		RootPath:     cfg.RootPath,
		TargetUnit:   cfg.TargetUnit,
		DepthLimit:   cfg.DepthLimit,
		GeneratedAt:  now().UTC(),
		ToolVersion:  ToolVersion,
		OutputPrefix: cfg.OutputPrefix,
	}
	if res.MS != nil {
		run.UnitCount = len(res.MS.Units)
	}
	if res.DM != nil {
		edgeCount := 0
		for _, node := range res.DM.Nodes {
			edgeCount += len(node.Forward)
		}
		run.EdgeCount = edgeCount
	}
	run.WarningCount = len(res.Warnings)

	_, err := hist.RecordRun(run)
	return err
}

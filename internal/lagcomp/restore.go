package lagcomp

import (
	"context"

	loglagcomp "github.com/XutaxKamay/css-enhanced-waf/logging/lagcomp"
)

// Commit closes the window Begin opened and puts every rewound actor back.
// Size and angles are only restored while they still hold the value the
// window wrote; origin keeps any motion applied during the window.
func (m *Manager) Commit() error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if !m.open {
		return ErrNoWindow
	}
	m.open = false
	if m.needRestore {
		for slot, ok := m.touched.Next(0); ok; slot, ok = m.touched.Next(slot + 1) {
			actor, present := m.deps.Roster.ActorAt(slot)
			if !present || actor == nil {
				continue
			}
			m.restoreActor(actor, &m.restore[slot], &m.change[slot])
		}
		m.needRestore = false
	}
	m.finishWindow()
	return nil
}

func (m *Manager) restoreActor(actor Actor, restore, change *Record) {
	if restore.HasRenderAngles {
		if angler, ok := actor.(RenderAngler); ok {
			angler.SetRenderAngles(restore.RenderAngles)
		}
	}

	if restore.Flags.Has(FlagSizeChanged) {
		if mins, maxs := actor.Bounds(); mins == change.Mins && maxs == change.Maxs {
			actor.SetBounds(restore.Mins, restore.Maxs)
		} else {
			m.win.stats.skipped++
		}
	}

	if restore.Flags.Has(FlagAnglesChanged) {
		if actor.Angles() == change.Angles {
			actor.SetAngles(restore.Angles)
		} else {
			m.win.stats.skipped++
		}
	}

	if restore.Flags.Has(FlagOriginChanged) {
		delta := actor.Origin().Sub(change.Origin)
		m.placeActor(actor, restore.Origin.Add(delta))
	}

	if restore.Flags.Has(FlagAnimationChanged) {
		actor.SetSequence(restore.Sequence, restore.Cycle)
		layers := clampCount(actor.LayerCount(), restore.LayerCount)
		for i := 0; i < layers; i++ {
			actor.SetLayer(i, restore.Layers[i])
		}
	}

	if restore.Flags.Has(FlagPoseParamsChanged) {
		params := clampCount(actor.PoseParameterCount(), restore.PoseParameterCount)
		for i := 0; i < params; i++ {
			actor.SetPoseParameter(i, restore.PoseParameters[i])
		}
	}

	if restore.Flags.Has(FlagControllersChanged) {
		controllers := clampCount(actor.BoneControllerCount(), restore.BoneControllerCount)
		for i := 0; i < controllers; i++ {
			actor.SetBoneController(i, restore.BoneControllers[i])
		}
	}

	actor.SetSimulationTime(restore.SimulationTime)
	actor.SetAnimationTime(restore.AnimationTime)
}

// finishWindow flushes the window counters to metrics.
func (m *Manager) finishWindow() {
	stats := m.win.stats
	add := func(key string, n int) {
		if n > 0 {
			m.deps.Metrics.Add(key, uint64(n))
		}
	}
	add(metricBacktracked, stats.backtracked)
	add(metricInterpolated, stats.interpolated)
	add(metricMissing, stats.missing)
	add(metricRestorePartial, stats.partial)
	add(metricRestoreFailed, stats.failed)
	add(metricRestoreSkipped, stats.skipped)

	if m.cfg.Debug && (stats.backtracked > 0 || stats.missing > 0) {
		loglagcomp.WindowCommitted(context.Background(), m.deps.Publisher, m.win.tick, m.traceID(), EntityRef(m.win.requester), loglagcomp.WindowCommittedPayload{
			Backtracked:  stats.backtracked,
			Interpolated: stats.interpolated,
			Missing:      stats.missing,
			Partial:      stats.partial,
			Failed:       stats.failed,
			Skipped:      stats.skipped,
		}, nil)
	}
	m.win.requester = nil
}

package stagetest

import (
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/teranos/cuesheet/trip"
)

type syncStats struct {
	updateSeq        int64
	lastProcessedSeq int64
	updatesSent      int64
	updatesProcessed int64
	bufferOverflows  int64
	sequenceGaps     int64
	duplicateUpdates int64
}

// stageModelWrapper forwards every model produced by Update to the director.
type stageModelWrapper struct {
	Model
	director *StageDirector
}

func (w stageModelWrapper) Update(msg tea.Msg) (result tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			w.director.handleModelPanic(r, msg)
			result, cmd = w, nil
		}
	}()

	next, cmd := w.Model.Update(msg)
	if next == nil {
		w.director.handleInvalidModelState("Update returned nil model", msg)
		return w, cmd
	}

	model, ok := next.(Model)
	if !ok {
		w.director.handleInvalidModelState(fmt.Sprintf("Update returned %T, which is not a stage model", next), msg)
		return w, cmd
	}

	w.director.publish(model)
	return stageModelWrapper{Model: model, director: w.director}, cmd
}

// publish hands model to the sync goroutine without ever blocking the
// program loop. A full buffer drops the update and counts it.
func (d *StageDirector) publish(model Model) {
	update := modelUpdate{
		model:     model,
		sequence:  atomic.AddInt64(&d.stats.updateSeq, 1),
		timestamp: time.Now(),
	}

	select {
	case d.modelChan <- update:
		atomic.AddInt64(&d.stats.updatesSent, 1)
	default:
		atomic.AddInt64(&d.stats.bufferOverflows, 1)
	}
}

// syncModelUpdates applies updates in sequence order, skipping stale ones.
func (d *StageDirector) syncModelUpdates() {
	defer func() {
		if r := recover(); r != nil {
			d.t.Logf("🚨 Model sync goroutine panicked: %v", r)
		}
	}()

	for {
		select {
		case update := <-d.modelChan:
			current := atomic.LoadInt64(&d.stats.lastProcessedSeq)
			if update.sequence <= current {
				atomic.AddInt64(&d.stats.duplicateUpdates, 1)
				continue
			}
			if update.sequence > current+1 {
				atomic.AddInt64(&d.stats.sequenceGaps, 1)
			}

			d.modelMu.Lock()
			d.latestModel = update.model
			atomic.StoreInt64(&d.stats.lastProcessedSeq, update.sequence)
			atomic.AddInt64(&d.stats.updatesProcessed, 1)
			d.modelMu.Unlock()

		case <-d.ctx.Done():
			return
		}
	}
}

func (d *StageDirector) processedSeq() int64 {
	return atomic.LoadInt64(&d.stats.lastProcessedSeq)
}

// GetSynchronizationStats returns the update pipeline counters.
func (d *StageDirector) GetSynchronizationStats() map[string]int64 {
	return map[string]int64{
		"updates_generated": atomic.LoadInt64(&d.stats.updateSeq),
		"updates_sent":      atomic.LoadInt64(&d.stats.updatesSent),
		"updates_processed": atomic.LoadInt64(&d.stats.updatesProcessed),
		"buffer_overflows":  atomic.LoadInt64(&d.stats.bufferOverflows),
		"sequence_gaps":     atomic.LoadInt64(&d.stats.sequenceGaps),
		"duplicate_updates": atomic.LoadInt64(&d.stats.duplicateUpdates),
		"buffer_length":     int64(len(d.modelChan)),
		"buffer_capacity":   int64(cap(d.modelChan)),
	}
}

// HasDroppedUpdates reports whether any model state never reached the director.
func (d *StageDirector) HasDroppedUpdates() bool {
	return atomic.LoadInt64(&d.stats.bufferOverflows) > 0 ||
		atomic.LoadInt64(&d.stats.sequenceGaps) > 0
}

// GetBufferUtilization returns the update buffer fill as a percentage.
func (d *StageDirector) GetBufferUtilization() float64 {
	if cap(d.modelChan) == 0 {
		return 0
	}
	return float64(len(d.modelChan)) / float64(cap(d.modelChan)) * 100
}

// handleModelPanic records a fall and cancels the stage.
func (d *StageDirector) handleModelPanic(panicValue interface{}, msg tea.Msg) {
	d.t.Logf("🚨 FAIL-FAST: Model panic detected: %v", panicValue)
	d.captureErrorSnapshot("model_panic", fmt.Sprintf("Panic: %v", panicValue))

	d.recordTrip(trip.NewFall(trip.TypeModel, fmt.Sprintf("model panic during Update: %v", panicValue), trip.Context{
		"panic_value": panicValue,
		"tea_msg":     fmt.Sprintf("%T: %+v", msg, msg),
		"model_type":  fmt.Sprintf("%T", d.model),
	}))
	d.cancel()
}

// handleInvalidModelState records a fall and cancels the stage.
func (d *StageDirector) handleInvalidModelState(reason string, msg tea.Msg) {
	d.t.Logf("🚨 FAIL-FAST: Invalid model state detected: %s", reason)
	d.captureErrorSnapshot("invalid_model_state", reason)

	d.recordTrip(trip.NewFall(trip.TypeModel, reason, trip.Context{
		"tea_msg":    fmt.Sprintf("%T: %+v", msg, msg),
		"model_type": fmt.Sprintf("%T", d.model),
	}))
	d.cancel()
}

// captureErrorSnapshot keeps the last good view next to the error.
func (d *StageDirector) captureErrorSnapshot(errorType, errorMessage string) {
	var view string
	func() {
		defer func() {
			if r := recover(); r != nil {
				view = fmt.Sprintf("ERROR: Could not get view due to panic: %v", r)
			}
		}()
		view = d.getCurrentView()
	}()

	d.recordMu.Lock()
	d.snapshots = append(d.snapshots, StageSnapshot{
		Timestamp: time.Now(),
		Reason:    "error",
		View:      fmt.Sprintf("ERROR STATE (%s)\n%s\n\nLast View:\n%s", errorType, errorMessage, view),
		Mode:      "error_" + errorType,
		Input:     d.getCurrentInput(),
	})
	d.recordMu.Unlock()
}

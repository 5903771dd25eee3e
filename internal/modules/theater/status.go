package theater

import (
	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/library"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

// Status returns the persisted session document.
func (t *Theater) Status() hw.Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.queue.Snapshot()
	qs := hw.QueueStatus{
		Elements: make([]hw.MediaRef, 0, len(snap.Elements)),
		Ordering: snap.Ordering,
		Shuffle:  snap.Shuffle,
		Loop:     snap.Loop,
	}
	for _, m := range snap.Elements {
		qs.Elements = append(qs.Elements, m.Ref())
	}
	if snap.Current >= 0 {
		qs.Current = hw.IntPtr(snap.Current)
	}
	return hw.Status{Autoplay: t.autoplay, Queue: qs, Player: t.player.status()}
}

// Restore rebuilds the session from a persisted document. Queue elements and
// the player media are resolved against the catalogue; unresolved entries are
// dropped.
func (t *Theater) Restore(st hw.Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.autoplay = st.Autoplay
	elements := make([]*library.Media, len(st.Queue.Elements))
	dropped := 0
	for i, ref := range st.Queue.Elements {
		if m, ok := t.index.MediaIn(ref.Folder, ref.Basename); ok {
			elements[i] = m
		} else {
			dropped++
		}
	}
	current := -1
	if st.Queue.Current != nil {
		current = *st.Queue.Current
	}
	t.queue.Restore(elements, st.Queue.Ordering, current, st.Queue.Shuffle, st.Queue.Loop)
	if dropped > 0 {
		t.log.Warn("restored queue dropped unresolved media", zap.Int("dropped", dropped))
	}
	t.notifyQueueLocked()

	t.player.setVolume(st.Player.CurrentVolume)
	ref := st.Player.Media
	if ref == nil {
		return nil
	}
	m, ok := t.index.MediaIn(ref.Folder, ref.Basename)
	if !ok {
		t.log.Warn("restored media not found", zap.String("folder", ref.Folder), zap.String("basename", ref.Basename))
		return nil
	}
	t.cancelAdvanceLocked()
	if err := t.player.restore(m, st.Player); err != nil {
		return err
	}
	t.log.Info("session restored", zap.String("media", m.Path()), zap.Int("queue", t.queue.Len()))
	return nil
}

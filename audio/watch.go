package audio

import (
	"strings"
	"time"
)

// Watcher polls the capture device list and the default input device and
// signals on Changes whenever either differs from the previous poll.
// Notifications are coalesced: a slow consumer sees at most one pending
// signal and re-reads the registry itself.
type Watcher struct {
	ctx      Context
	interval time.Duration

	changes chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func NewWatcher(ctx Context, interval time.Duration) *Watcher {
	return &Watcher{
		ctx:      ctx,
		interval: interval,
		changes:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *Watcher) Changes() <-chan struct{} { return w.changes }

func (w *Watcher) Start() {
	// Take the baseline snapshot before returning so registry changes made
	// after Start are always compared against the state Start observed.
	last := w.snapshot()
	go w.run(last)
}

func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}

func (w *Watcher) run(last string) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			cur := w.snapshot()
			if cur == last {
				continue
			}
			last = cur
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// snapshot flattens the device list plus default-device identity into a
// comparable string.
func (w *Watcher) snapshot() string {
	var sb strings.Builder
	if def, err := w.ctx.DefaultDevice(); err == nil && def != nil {
		sb.WriteString(def.ID)
	}
	sb.WriteByte('|')
	devices, err := w.ctx.Devices()
	if err != nil {
		return sb.String()
	}
	for _, d := range devices {
		sb.WriteString(d.ID)
		sb.WriteByte(';')
	}
	return sb.String()
}

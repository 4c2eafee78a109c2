package alert

import (
	"fmt"
	"io"
	"sync"
	"time"

	"pulse/internal/domain/service"
)

// titleBlinker alternates the terminal window title between an alert marker
// and the original title while the window is hidden. The cycle is bounded;
// Stop, regained visibility, or cycle exhaustion all restore the original
// title. The original title must survive every path out of a blink: a stuck
// alert title is a defect.
type titleBlinker struct {
	out           io.Writer
	originalTitle string
	interval      time.Duration
	maxCycles     int

	mu       sync.Mutex
	ticker   *time.Ticker
	done     chan struct{}
	unsub    func()
	blinking bool
}

// NewTitleBlinker creates the title blinker. originalTitle is the title to
// restore after every blink cycle; visibility stops the blink as soon as the
// window is visible again.
func NewTitleBlinker(out io.Writer, originalTitle string, interval time.Duration, maxCycles int, visibility service.Visibility) service.TitleBlinker {
	b := &titleBlinker{
		out:           out,
		originalTitle: originalTitle,
		interval:      interval,
		maxCycles:     maxCycles,
	}
	b.unsub = visibility.OnVisible(b.Stop)

	return b
}

// Start begins blinking with the given marker. A blink already in progress
// is left running; the newer marker does not preempt it.
func (b *titleBlinker) Start(marker string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blinking {
		return
	}
	b.blinking = true
	b.ticker = time.NewTicker(b.interval)
	b.done = make(chan struct{})

	go b.blink(marker, b.ticker, b.done)
}

func (b *titleBlinker) blink(marker string, ticker *time.Ticker, done chan struct{}) {
	showMarker := true
	b.setTitle(marker)

	for cycle := 0; cycle < b.maxCycles; cycle++ {
		select {
		case <-done:
			return
		case <-ticker.C:
			showMarker = !showMarker
			if showMarker {
				b.setTitle(marker)
			} else {
				b.setTitle(b.originalTitle)
			}
		}
	}

	b.stop(done)
}

// Stop halts the blink and restores the original title. Idempotent.
func (b *titleBlinker) Stop() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()

	b.stop(done)
}

// stop ends the blink generation identified by done. A goroutine whose
// cycles exhausted after Stop+Start replaced it must not stop the newer
// blink, so the generation is compared under the lock first.
func (b *titleBlinker) stop(done chan struct{}) {
	b.mu.Lock()
	if !b.blinking || b.done != done {
		b.mu.Unlock()

		return
	}
	b.blinking = false
	b.ticker.Stop()
	close(b.done)
	b.mu.Unlock()

	b.setTitle(b.originalTitle)
}

// setTitle emits the xterm OSC 0 title sequence.
func (b *titleBlinker) setTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, _ = fmt.Fprintf(b.out, "\x1b]0;%s\a", title)
}

// Close unsubscribes from visibility changes and stops any running blink.
func (b *titleBlinker) Close() {
	if b.unsub != nil {
		b.unsub()
	}
	b.Stop()
}

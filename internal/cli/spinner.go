package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerFrames cycles through the four corners of a filled quadrant,
// echoing the lattice grid the tool lays out.
var spinnerFrames = [...]string{"▖", "▘", "▝", "▗"}

// Spinner renders an in-place progress line on stderr while a layout
// solve runs. It shows elapsed time next to the message so long solves
// are visibly still alive.
type Spinner struct {
	ctx     context.Context
	message string
	started time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// newSpinner creates a spinner bound to ctx. Context cancellation stops
// the animation the same way Stop does.
func newSpinner(ctx context.Context, message string) *Spinner {
	return &Spinner{
		ctx:     ctx,
		message: message,
		stop:    make(chan struct{}),
	}
}

// Start begins the animation. Safe to call once per spinner.
func (s *Spinner) Start() {
	s.started = time.Now()
	s.wg.Add(1)
	go s.run()
}

func (s *Spinner) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.ctx.Done():
			s.erase()
			return
		case <-s.stop:
			s.erase()
			return
		case <-ticker.C:
			glyph := styleIconSpinner.Render(spinnerFrames[frame%len(spinnerFrames)])
			elapsed := StyleDim.Render(fmt.Sprintf("(%.1fs)", time.Since(s.started).Seconds()))
			fmt.Fprintf(os.Stderr, "\r%s %s %s", glyph, s.message, elapsed)
		}
	}
}

// erase blanks the spinner line. Width covers glyph, message, and the
// elapsed suffix.
func (s *Spinner) erase() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+12))
}

// Stop halts the animation and clears the line. Idempotent.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// StopWithError halts the spinner and prints an error line in its place.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

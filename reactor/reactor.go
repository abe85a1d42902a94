// Package reactor is the event core described in spec.md §4.3 and
// SPEC_FULL.md's Go-native mapping of it: a single goroutine that owns the
// PTY and the Term, fed by a PTY-reader goroutine, a message channel, and
// the process's signal channel, the three readiness sources the original
// kopparoxid event loop registered with mio
// (_examples/original_source/src/event_loop.rs:TermHandler.ready/notify).
package reactor

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/javanhut/ravencore/parser"
	"github.com/javanhut/ravencore/term"
)

// PTY is the subset of ptyio.PtySession the reactor depends on; an
// interface here keeps the reactor testable without a real pseudo-terminal.
type PTY interface {
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Resize(cols, rows uint16) error
	Close() error
}

// Kind tags a Message's variant (spec.md §4.3's message catalog).
type Kind int

const (
	KindResize Kind = iota
	KindCharacter
	KindFocus
	KindExit
)

// Message is what a UI/input thread sends into the reactor's channel.
type Message struct {
	Kind Kind

	Cols, Rows     uint16 // KindResize
	PixelW, PixelH uint16 // KindResize

	Rune rune // KindCharacter

	Focused bool // KindFocus
}

// frameGate is the minimum spacing between renderer wakeups (spec.md §4.3's
// default 16ms frame-timer gate, ~60Hz).
const frameGate = 16 * time.Millisecond

// Reactor runs the single-threaded read/dispatch loop of spec.md §5: it is
// the only goroutine that calls Term.Handle, so Term's mutex exists only to
// let a separate renderer goroutine call Snapshot concurrently.
type Reactor struct {
	pty  PTY
	term *term.Term
	p    *parser.Parser

	messages chan Message
	wake     func()

	lastWake    time.Time
	pendingWake bool
	wakeMu      sync.Mutex
}

// New builds a Reactor over an already-started PTY and Term. wake is called
// whenever new output may have changed what the renderer should draw —
// from the reactor goroutine, or from a timer goroutine for a deferred
// trailing wakeup (see wakeGated); pass a no-op if polling is acceptable.
func New(pty PTY, t *term.Term, wake func()) *Reactor {
	if wake == nil {
		wake = func() {}
	}
	return &Reactor{
		pty:      pty,
		term:     t,
		p:        parser.New(),
		messages: make(chan Message, 64),
		wake:     wake,
	}
}

// Send enqueues a message for the reactor goroutine to process. Safe to
// call from any goroutine (e.g. a GLFW input callback).
func (r *Reactor) Send(m Message) {
	r.messages <- m
}

// Run blocks processing PTY output, messages, and termination signals until
// the PTY read side closes, a KindExit message arrives, or the process
// receives SIGINT/SIGTERM. It is the Go-native rendering of the self-pipe
// pattern: os/signal.Notify already performs the async-signal-safe write
// into the runtime's own pipe, so the signal handler itself never touches a
// mutex or channel directly (spec.md §5's restriction).
func (r *Reactor) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	readCh := make(chan []byte, 16)
	errCh := make(chan error, 1)
	go r.readLoop(readCh, errCh)

	for {
		select {
		case chunk, ok := <-readCh:
			if !ok {
				return <-errCh
			}
			r.handleChunk(chunk)

		case msg := <-r.messages:
			if done := r.handleMessage(msg); done {
				return nil
			}

		case <-sigCh:
			return nil
		}
	}
}

func (r *Reactor) readLoop(out chan<- []byte, errCh chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := r.pty.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			errCh <- err
			close(out)
			return
		}
	}
}

func (r *Reactor) handleChunk(chunk []byte) {
	events := r.p.Parse(chunk)
	for _, ev := range events {
		r.term.Handle(ev)
	}
	r.flushOutput()
	r.wakeGated()
}

// handleMessage applies one UI-originated message. It returns true when the
// reactor should stop running.
func (r *Reactor) handleMessage(msg Message) bool {
	switch msg.Kind {
	case KindResize:
		r.term.Resize(int(msg.Cols), int(msg.Rows))
		r.pty.Resize(msg.Cols, msg.Rows)
		// TIOCSWINSZ itself raises SIGWINCH to the PTY's foreground process
		// group on Linux; the reactor does not send it explicitly (unlike
		// the original event loop, which needed an explicit kill() because
		// mio's resize path did not already own that ioctl).
		r.wakeGated()

	case KindCharacter:
		r.term.QueueCharacter(msg.Rune)
		r.flushOutput()

	case KindFocus:
		r.term.QueueFocus(msg.Focused)
		r.flushOutput()

	case KindExit:
		return true
	}
	return false
}

func (r *Reactor) flushOutput() {
	out := r.term.TakeOutput()
	if len(out) == 0 {
		return
	}
	r.pty.Write(out)
}

// wakeGated calls the renderer wakeup callback, but never more often than
// frameGate — repeated PTY chunks within one frame interval coalesce into a
// single wakeup (spec.md §4.3's frame-timer wakeup gate). A call that lands
// inside the gate doesn't just drop: it schedules one trailing wakeup for
// when the gate reopens, so the last frame of a burst still renders even if
// no further chunk arrives to trigger it.
func (r *Reactor) wakeGated() {
	r.wakeMu.Lock()
	defer r.wakeMu.Unlock()
	now := time.Now()
	elapsed := now.Sub(r.lastWake)
	if elapsed >= frameGate {
		r.lastWake = now
		r.wake()
		return
	}
	if r.pendingWake {
		return
	}
	r.pendingWake = true
	time.AfterFunc(frameGate-elapsed, func() {
		r.wakeMu.Lock()
		r.lastWake = time.Now()
		r.pendingWake = false
		r.wakeMu.Unlock()
		r.wake()
	})
}

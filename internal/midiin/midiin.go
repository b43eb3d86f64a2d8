// Package midiin supplies normalized note events from a MIDI input device.
// It monitors available inputs, auto-connects, and treats device loss as a
// pause: the watcher keeps rescanning and reconnects when the device
// returns.
package midiin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"

	"github.com/chrizzleybear/piano-midi-practice/internal/engine"
	"github.com/chrizzleybear/piano-midi-practice/internal/theory"
)

// Virtual/system ports that are never auto-connected.
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

const rescanInterval = time.Second

// Connection reports a change in device connectivity.
type Connection struct {
	Connected bool
	Device    string
}

// Watcher maintains a connection to a MIDI input and delivers normalized
// note events in timestamp order.
type Watcher struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	preferred string
	events    chan engine.NoteEvent
	conns     chan Connection
	log       *zap.Logger
}

// NewWatcher creates a watcher and initialises the underlying rtmidi
// driver. preferred pins a device by case-insensitive substring; empty
// means first available. Call Close when done.
func NewWatcher(preferred string, log *zap.Logger) (*Watcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &Watcher{
		drv:       drv,
		preferred: preferred,
		events:    make(chan engine.NoteEvent, 64),
		conns:     make(chan Connection, 4),
		log:       log,
	}, nil
}

// Events returns the normalized note event stream.
func (w *Watcher) Events() <-chan engine.NoteEvent {
	return w.events
}

// Connections returns connectivity change notifications.
func (w *Watcher) Connections() <-chan Connection {
	return w.conns
}

// Run scans for devices until the context is cancelled. It handles
// hot-plug and hot-unplug transparently.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()
	w.tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// Close shuts down the active connection and the rtmidi driver.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
	w.drv.Close()
}

func (w *Watcher) tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if !w.lastRescanAt.IsZero() && now.Sub(w.lastRescanAt) < rescanInterval {
		return
	}
	w.lastRescanAt = now

	inputs := w.listInputs()

	if w.connected {
		for _, name := range inputs {
			if name == w.selectedName {
				return
			}
		}
		// Device disappeared: pause, not an error.
		w.log.Warn("midi device disappeared", zap.String("device", w.selectedName))
		device := w.selectedName
		w.closeConn()
		w.lastRescanAt = time.Time{}
		w.notify(Connection{Connected: false, Device: device})
		return
	}

	if len(inputs) == 0 {
		return
	}
	cand, ok := w.pick(inputs)
	if !ok {
		return
	}
	if err := w.openByName(cand); err != nil {
		w.log.Error("midi connect failed", zap.String("device", cand), zap.Error(err))
	}
}

func (w *Watcher) listInputs() []string {
	ins, err := w.drv.Ins()
	if err != nil {
		w.log.Error("midi list inputs failed", zap.Error(err))
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		if isExcluded(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (w *Watcher) pick(inputs []string) (string, bool) {
	if w.preferred != "" {
		for _, name := range inputs {
			if containsCI(name, w.preferred) {
				return name, true
			}
		}
		return "", false
	}
	return inputs[0], true
}

func (w *Watcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		_ = w.inPort.Close()
		w.inPort = nil
	}
	w.connected = false
	w.selectedName = ""
}

func (w *Watcher) openByName(name string) error {
	ins, err := w.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if msg.GetNoteStart(&ch, &key, &vel) {
			w.emit(engine.NoteEvent{
				Pitch:      int(key),
				PitchClass: theory.PitchClassOf(int(key)),
				Velocity:   int(vel),
				Kind:       engine.NoteOn,
				At:         time.Now(),
			})
		} else if msg.GetNoteEnd(&ch, &key) {
			w.emit(engine.NoteEvent{
				Pitch:      int(key),
				PitchClass: theory.PitchClassOf(int(key)),
				Kind:       engine.NoteOff,
				At:         time.Now(),
			})
		}
	}, midi.HandleError(func(listenErr error) {
		w.log.Warn("midi listener error", zap.String("device", name), zap.Error(listenErr))
		// Must not tear down the connection from the listener goroutine.
		go func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.connected && w.selectedName == name {
				w.closeConn()
				w.lastRescanAt = time.Time{}
				w.notify(Connection{Connected: false, Device: name})
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	w.inPort = found
	w.stopFn = stop
	w.connected = true
	w.selectedName = name
	w.log.Info("midi connected", zap.String("device", name))
	w.notify(Connection{Connected: true, Device: name})
	return nil
}

// emit delivers an event without blocking the listener goroutine. A full
// buffer drops the event; the engine treats gaps as a pause.
func (w *Watcher) emit(ev engine.NoteEvent) {
	w.log.Debug("midi note",
		zap.Int("pitch", ev.Pitch),
		zap.Int("velocity", ev.Velocity),
		zap.Bool("on", ev.Kind == engine.NoteOn),
	)
	select {
	case w.events <- ev:
	default:
		w.log.Warn("note event dropped, buffer full", zap.Int("pitch", ev.Pitch))
	}
}

func (w *Watcher) notify(c Connection) {
	select {
	case w.conns <- c:
	default:
	}
}

// ListInputs enumerates available MIDI input devices, excluding virtual
// system ports.
func ListInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		if isExcluded(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func isExcluded(name string) bool {
	for _, pat := range excludedPatterns {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

package editor

import (
	"errors"
	"sync"
)

// ErrAlreadyBound is returned when attaching to a region that already has a binding.
var ErrAlreadyBound = errors.New("editor: region already bound")

// State tracks whether the widget holds edits the model has not seen yet.
type State int

const (
	Clean State = iota
	Dirty
)

func (s State) String() string {
	if s == Dirty {
		return "dirty"
	}
	return "clean"
}

// Value is the external model value a binding keeps in sync with its widget.
type Value interface {
	Get() string
	Set(v string)
	Watch(fn func(v string)) (cancel func())
}

// Binding synchronizes one widget with one Value.
//
// The binding is Dirty while the widget holds edits the value has not received. Every
// change notification from the widget marks it Dirty; blur and save also catch content that
// changed without a notification. Dirty content is flushed into the value at those points.
// Value changes made elsewhere are written into the widget only when they differ from what
// it currently shows.
type Binding struct {
	region *Region
	value  Value
	widget Widget

	mu       sync.Mutex
	state    State
	synced   string
	echo     string
	echoing  bool
	applying int // inbound writes in progress; their change notifications are ours
	unwatch  func()
}

// Attach marks region editable, gives it an ID when it has none, builds the widget through
// factory and starts syncing it with value.
func Attach(region *Region, value Value, factory Factory) (*Binding, error) {
	b := &Binding{region: region, value: value}
	if err := region.claim(b); err != nil {
		return nil, err
	}

	// Handlers fired while the factory runs find no widget and are dropped.
	w := factory(region, b.config())
	b.mu.Lock()
	b.widget = w
	b.synced = w.GetData()
	b.mu.Unlock()

	b.unwatch = value.Watch(b.modelChanged)
	return b, nil
}

func (b *Binding) config() Config {
	return Config{
		Title:    false,
		OnBlur:   func() { b.Flush() },
		OnChange: b.widgetChanged,
		Commands: []Command{{
			Name:  "save",
			Modes: []Mode{ModeWYSIWYG, ModeSource},
			Exec:  func() { b.Flush() },
		}},
		Buttons: []Button{{
			Name:    "Save",
			Label:   "Save",
			Command: "save",
			Toolbar: "document",
		}},
	}
}

// Flush writes the widget content into the value when the binding is dirty and reports
// whether it did. The content read and the transition back to Clean happen under one lock,
// so a change notification racing with the flush marks the binding dirty again rather than
// being lost.
func (b *Binding) Flush() bool {
	b.mu.Lock()
	if b.widget == nil {
		b.mu.Unlock()
		return false
	}
	b.observeLocked()
	if b.state != Dirty {
		b.mu.Unlock()
		return false
	}
	data := b.widget.GetData()
	b.state = Clean
	b.synced = data
	b.echo, b.echoing = data, true
	b.mu.Unlock()

	b.value.Set(data)

	b.mu.Lock()
	if b.echoing && b.echo == data {
		b.echoing = false
	}
	b.mu.Unlock()
	return true
}

// State reports whether the widget has unsynced edits.
func (b *Binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Binding) Region() *Region { return b.region }

func (b *Binding) Widget() Widget { return b.widget }

// Detach stops syncing and frees the region for another binding. Widgets with a Destroy
// method are destroyed.
func (b *Binding) Detach() {
	b.mu.Lock()
	unwatch := b.unwatch
	b.unwatch = nil
	b.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	if d, ok := b.widget.(interface{ Destroy() }); ok {
		d.Destroy()
	}
	b.region.release(b)
}

// widgetChanged marks the binding dirty and flushes, even when the edit ended on the
// synced content.
func (b *Binding) widgetChanged() {
	b.mu.Lock()
	if b.widget == nil || b.applying > 0 {
		b.mu.Unlock()
		return
	}
	b.state = Dirty
	b.mu.Unlock()
	b.Flush()
}

// observeLocked catches edits from widgets that changed without notifying.
func (b *Binding) observeLocked() {
	if b.widget.GetData() != b.synced {
		b.state = Dirty
	}
}

func (b *Binding) modelChanged(v string) {
	b.mu.Lock()
	if b.widget == nil {
		b.mu.Unlock()
		return
	}
	if b.echoing && v == b.echo {
		b.echoing = false
		b.mu.Unlock()
		return
	}
	if b.widget.GetData() == v {
		b.synced = v
		b.state = Clean
		b.mu.Unlock()
		return
	}
	b.synced = v
	b.state = Clean
	b.applying++
	b.mu.Unlock()

	b.widget.SetData(v)

	b.mu.Lock()
	b.applying--
	b.mu.Unlock()
}

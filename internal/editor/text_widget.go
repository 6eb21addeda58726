package editor

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownCommand  = errors.New("editor: unknown command")
	ErrCommandDisabled = errors.New("editor: command disabled in current mode")
	ErrDestroyed       = errors.New("editor: widget destroyed")
)

// TextWidget is an in-memory editor widget. It reports every content write as a change,
// including programmatic SetData calls, the way inline rich-text editors do.
type TextWidget struct {
	region *Region
	cfg    Config

	mu        sync.Mutex
	data      string
	mode      Mode
	focused   bool
	destroyed bool
	commands  map[string]Command
}

// NewTextWidget builds a TextWidget over region.
func NewTextWidget(region *Region, cfg Config) *TextWidget {
	w := &TextWidget{
		region:   region,
		cfg:      cfg,
		mode:     ModeWYSIWYG,
		commands: make(map[string]Command, len(cfg.Commands)),
	}
	for _, c := range cfg.Commands {
		w.commands[c.Name] = c
	}
	return w
}

// TextWidgetFactory adapts NewTextWidget to a Factory.
func TextWidgetFactory(region *Region, cfg Config) Widget {
	return NewTextWidget(region, cfg)
}

func (w *TextWidget) GetData() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.data
}

func (w *TextWidget) SetData(data string) {
	w.write(data)
}

// Input replaces the content as if the user had typed it.
func (w *TextWidget) Input(data string) {
	w.mu.Lock()
	w.focused = true
	w.mu.Unlock()
	w.write(data)
}

// Blur drops focus and fires the blur handler.
func (w *TextWidget) Blur() {
	w.mu.Lock()
	wasFocused := w.focused
	w.focused = false
	w.mu.Unlock()
	if wasFocused && w.cfg.OnBlur != nil {
		w.cfg.OnBlur()
	}
}

// SetMode switches between WYSIWYG and source editing.
func (w *TextWidget) SetMode(m Mode) {
	w.mu.Lock()
	w.mode = m
	w.mu.Unlock()
}

// Exec runs the named command in the current mode.
func (w *TextWidget) Exec(name string) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrDestroyed
	}
	cmd, ok := w.commands[name]
	mode := w.mode
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if !cmd.EnabledIn(mode) {
		return fmt.Errorf("%w: %s in %s", ErrCommandDisabled, name, mode)
	}
	cmd.Exec()
	return nil
}

// Press clicks the toolbar button with the given name.
func (w *TextWidget) Press(button string) error {
	for _, b := range w.cfg.Buttons {
		if b.Name == button {
			return w.Exec(b.Command)
		}
	}
	return fmt.Errorf("%w: no button %s", ErrUnknownCommand, button)
}

// Buttons lists the toolbar buttons, in registration order.
func (w *TextWidget) Buttons() []Button {
	out := make([]Button, len(w.cfg.Buttons))
	copy(out, w.cfg.Buttons)
	return out
}

func (w *TextWidget) Destroy() {
	w.mu.Lock()
	w.destroyed = true
	w.mu.Unlock()
}

func (w *TextWidget) write(data string) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.data = data
	w.mu.Unlock()
	if w.cfg.OnChange != nil {
		w.cfg.OnChange()
	}
}

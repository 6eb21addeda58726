// Package editor binds rich-text editor widgets to view-model values.
package editor

// Widget is the part of a rich-text editor the binding relies on.
type Widget interface {
	GetData() string
	SetData(data string)
}

// Factory constructs a widget over region using the per-instance configuration cfg.
type Factory func(region *Region, cfg Config) Widget

// Mode is an editing mode a command is enabled in.
type Mode string

const (
	ModeWYSIWYG Mode = "wysiwyg"
	ModeSource  Mode = "source"
)

// Command is a named editor action.
type Command struct {
	Name  string
	Modes []Mode
	Exec  func()
}

// EnabledIn reports whether the command may run in mode m.
func (c Command) EnabledIn(m Mode) bool {
	for _, mode := range c.Modes {
		if mode == m {
			return true
		}
	}
	return false
}

// Button is a toolbar button that runs a command.
type Button struct {
	Name    string
	Label   string
	Command string
	Toolbar string
}

// Config is handed to a widget at construction. It carries the event handlers and the
// commands owned by a single binding; nothing in it is shared between widgets.
type Config struct {
	Title    bool
	OnBlur   func()
	OnChange func()
	Commands []Command
	Buttons  []Button
}

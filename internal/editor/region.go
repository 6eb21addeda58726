package editor

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// IDPrefix starts every generated region ID.
const IDPrefix = "__ckd_"

var idCounter atomic.Uint64

// NextID returns a region ID that is unique for the life of the process.
func NextID() string {
	return IDPrefix + strconv.FormatUint(idCounter.Add(1), 10)
}

// Region is the editable element a widget is attached to.
type Region struct {
	mu      sync.Mutex
	id      string
	attrs   map[string]string
	binding *Binding
}

// NewRegion returns a region with the given ID; an empty ID is assigned on Attach.
func NewRegion(id string) *Region {
	return &Region{id: id, attrs: make(map[string]string)}
}

func (r *Region) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *Region) Attr(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.attrs[name]
	return v, ok
}

func (r *Region) SetAttr(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs[name] = value
}

// Binding returns the binding attached to the region, if any.
func (r *Region) Binding() *Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.binding
}

// claim prepares the region for a new binding. It fails when one is already attached.
func (r *Region) claim(b *Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.binding != nil {
		return ErrAlreadyBound
	}
	r.attrs["contenteditable"] = "true"
	if r.id == "" {
		r.id = NextID()
	}
	r.binding = b
	return nil
}

func (r *Region) release(b *Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.binding == b {
		r.binding = nil
	}
}

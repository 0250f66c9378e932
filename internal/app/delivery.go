package app

import (
	"sync/atomic"

	"github.com/bft-labs/logtap/internal/ports"
)

// delivery posts listener callbacks through the host's Poster.
// The listener is looked up when the callback runs, so a callback posted
// before SetListener reaches the listener installed at execution time.
type delivery struct {
	poster   ports.Poster
	listener atomic.Pointer[listenerBox]
}

type listenerBox struct {
	l ports.Listener
}

func newDelivery(poster ports.Poster) *delivery {
	if poster == nil {
		poster = ports.Inline
	}
	return &delivery{poster: poster}
}

func (d *delivery) set(l ports.Listener) {
	if l == nil {
		d.listener.Store(nil)
		return
	}
	d.listener.Store(&listenerBox{l: l})
}

func (d *delivery) current() ports.Listener {
	if b := d.listener.Load(); b != nil {
		return b.l
	}
	return nil
}

func (d *delivery) post(fn func(ports.Listener)) {
	d.poster.Post(func() {
		if l := d.current(); l != nil {
			fn(l)
		}
	})
}

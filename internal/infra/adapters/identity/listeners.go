package identity

import (
	"sync"

	"nyx-chat/internal/domain/ports/adapter"
)

// listeners fans auth-state changes out to subscribers.
type listeners struct {
	mu     sync.Mutex
	fns    map[int]func(*adapter.ProviderUser)
	nextID int
}

func newListeners() *listeners {
	return &listeners{fns: map[int]func(*adapter.ProviderUser){}}
}

func (l *listeners) add(fn func(*adapter.ProviderUser)) (remove func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) emit(u *adapter.ProviderUser) {
	l.mu.Lock()
	fns := make([]func(*adapter.ProviderUser), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		var cp *adapter.ProviderUser
		if u != nil {
			c := *u
			cp = &c
		}
		fn(cp)
	}
}

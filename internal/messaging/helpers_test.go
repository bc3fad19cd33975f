package messaging

import (
	"sync"

	"ClawdCity-Messaging/internal/core/window"
)

type listenerFn func(window.MessageEvent)

type fakeSource struct {
	mu        sync.Mutex
	attaches  int
	listeners []listenerFn
}

func (f *fakeSource) AddMessageListener(fn func(window.MessageEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attaches++
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeSource) emit(ev window.MessageEvent) {
	f.mu.Lock()
	listeners := append([]listenerFn(nil), f.listeners...)
	f.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

func (f *fakeSource) attachCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attaches
}

type post struct {
	data   any
	origin string
}

type recordingTarget struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (r *recordingTarget) PostMessage(data any, targetOrigin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.posts = append(r.posts, post{data: data, origin: targetOrigin})
	return nil
}

func (r *recordingTarget) sent() []post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]post(nil), r.posts...)
}

func noopReceive(window.MessageEvent, any)      {}
func noopReply(window.MessageEvent, any, Reply) {}

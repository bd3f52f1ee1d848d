// Package ioloop implements a single-threaded, cooperative readiness
// loop over file descriptors: register an fd for {read, write,
// timeout} events, get a callback on the loop's one goroutine. No
// handler may block or perform CPU-heavy work (spec.md §4.C).
//
// Grounded on spec.md §4.C's description of uhub's net_event/epoll
// core (no C source for it was retrieved); built with
// golang.org/x/sys/unix epoll the way the rest of the Go ecosystem
// wraps it.
package ioloop

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Events is a bitmask of readiness conditions.
type Events uint32

const (
	Read Events = 1 << iota
	Write
	Timeout
)

// Handler is invoked on the loop's goroutine when a registered fd
// becomes ready, or when its deadline elapses (ev == Timeout). It
// must return quickly and must not block.
type Handler func(fd int, ev Events)

type registration struct {
	fd       int
	interest Events
	handler  Handler
	timeout  time.Duration
	deadline time.Time
}

// Loop is a single-threaded epoll-backed readiness loop.
type Loop struct {
	epfd int

	mu    sync.Mutex
	regs  map[int]*registration
	closed bool

	wake [2]int // self-pipe, so Register/Close from another goroutine can interrupt epoll_wait
}

// New creates a Loop. Call Run on exactly one goroutine.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("ioloop: epoll_create1: %w", err)
	}
	l := &Loop{epfd: epfd, regs: make(map[int]*registration)}

	fds, err := pipe2CloseExec()
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	l.wake = fds
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, l.wake[0], &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(l.wake[0]),
	}); err != nil {
		unix.Close(epfd)
		unix.Close(l.wake[0])
		unix.Close(l.wake[1])
		return nil, fmt.Errorf("ioloop: epoll_ctl(wake): %w", err)
	}
	return l, nil
}

func pipe2CloseExec() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return fds, fmt.Errorf("ioloop: pipe2: %w", err)
	}
	return fds, nil
}

// Register adds fd to the loop with the given interest mask, timeout
// (0 disables the deadline) and handler. Registering an fd that is
// already registered replaces its registration.
func (l *Loop) Register(fd int, interest Events, timeout time.Duration, h Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("ioloop: loop is closed")
	}
	r := &registration{fd: fd, interest: interest, handler: h, timeout: timeout}
	if timeout > 0 {
		r.deadline = time.Now().Add(timeout)
	}
	_, existed := l.regs[fd]
	l.regs[fd] = r

	op := unix.EPOLL_CTL_ADD
	if existed {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(l.epfd, op, fd, &unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}); err != nil {
		delete(l.regs, fd)
		return fmt.Errorf("ioloop: epoll_ctl: %w", err)
	}
	l.nudge()
	return nil
}

// Reprogram changes the interest mask for an already-registered fd,
// e.g. to flip between wanting reads and wanting writes mid-handshake.
func (l *Loop) Reprogram(fd int, interest Events) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.regs[fd]
	if !ok {
		return fmt.Errorf("ioloop: fd %d is not registered", fd)
	}
	r.interest = interest
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)})
}

// Touch resets fd's idle deadline to now+timeout, as required on any
// traffic (spec.md §4.C).
func (l *Loop) Touch(fd int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.regs[fd]
	if !ok || r.timeout <= 0 {
		return
	}
	r.deadline = time.Now().Add(r.timeout)
}

// Unregister removes fd from the loop. It does not close fd.
func (l *Loop) Unregister(fd int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.regs[fd]; !ok {
		return
	}
	delete(l.regs, fd)
	unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func epollMask(interest Events) uint32 {
	var m uint32
	if interest&Read != 0 {
		m |= unix.EPOLLIN
	}
	if interest&Write != 0 {
		m |= unix.EPOLLOUT
	}
	return m
}

// nudge wakes a blocked epoll_wait so a concurrent Register/Close call
// is observed promptly; safe to call with l.mu held.
func (l *Loop) nudge() {
	unix.Write(l.wake[1], []byte{0})
}

// Run blocks, delivering events until Close is called. It must run on
// a single goroutine for the lifetime of the Loop — handlers execute
// synchronously on this goroutine (spec.md §4.C: "exactly one thread
// runs the loop").
func (l *Loop) Run() error {
	events := make([]unix.EpollEvent, 256)
	for {
		wait := l.nextWait()
		n, err := unix.EpollWait(l.epfd, events, wait)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("ioloop: epoll_wait: %w", err)
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return nil
		}
		var ready []*registration
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == l.wake[0] {
				drainWake(l.wake[0])
				continue
			}
			r, ok := l.regs[fd]
			if !ok {
				continue
			}
			var ev Events
			if events[i].Events&unix.EPOLLIN != 0 {
				ev |= Read
			}
			if events[i].Events&unix.EPOLLOUT != 0 {
				ev |= Write
			}
			if events[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				ev |= Read | Write
			}
			if ev != 0 {
				if r.timeout > 0 {
					r.deadline = time.Now().Add(r.timeout)
				}
				ready = append(ready, &registration{fd: r.fd, handler: r.handler, interest: ev})
			}
		}
		timedOut := l.collectTimeouts()
		l.mu.Unlock()

		for _, r := range ready {
			r.handler(r.fd, r.interest)
		}
		for _, fd := range timedOut {
			l.mu.Lock()
			r, ok := l.regs[fd]
			l.mu.Unlock()
			if ok {
				r.handler(fd, Timeout)
			}
		}
	}
}

// collectTimeouts must be called with l.mu held; it returns the fds
// whose deadline has elapsed.
func (l *Loop) collectTimeouts() []int {
	now := time.Now()
	var out []int
	for fd, r := range l.regs {
		if r.timeout > 0 && !r.deadline.IsZero() && now.After(r.deadline) {
			out = append(out, fd)
		}
	}
	return out
}

// nextWait computes the epoll_wait timeout in milliseconds: the time
// until the nearest deadline, capped at one second so newly-registered
// deadlines are never missed by more than that.
func (l *Loop) nextWait() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	const capMs = 1000
	nearest := capMs
	now := time.Now()
	for _, r := range l.regs {
		if r.timeout <= 0 || r.deadline.IsZero() {
			continue
		}
		if ms := int(r.deadline.Sub(now) / time.Millisecond); ms < nearest {
			nearest = ms
		}
	}
	if nearest < 0 {
		nearest = 0
	}
	return nearest
}

func drainWake(fd int) {
	var buf [64]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close stops Run and releases the epoll fd. It does not close any
// registered connection fds; callers own those.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	l.nudge()
	unix.Close(l.wake[0])
	unix.Close(l.wake[1])
	return unix.Close(l.epfd)
}

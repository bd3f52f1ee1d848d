// Package sid implements the ADC session identifier: a 20-bit integer
// encoded as 4 base32 characters, and the fixed-capacity pool that
// lends SIDs to connected users.
package sid

import "sync"

// alphabet is the base32 alphabet used by ADC session IDs, MSB first.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// values maps an ASCII byte to its base32 digit value, or -1 if the
// byte is not part of the alphabet.
var values [128]int8

func init() {
	for i := range values {
		values[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		values[alphabet[i]] = int8(i)
	}
}

// SID is a 20-bit ADC session identifier. 0 is reserved for the hub.
type SID uint32

// Max is the largest representable SID value (4 base32 digits).
const Max SID = 32*32*32*32 - 1

// String encodes the SID as exactly 4 base32 characters, MSB first.
func (s SID) String() string {
	return String(s)
}

// IsZero reports whether s is the reserved hub SID.
func (s SID) IsZero() bool { return s == 0 }

// String encodes sid as exactly 4 base32 characters, MSB first.
func String(sid SID) string {
	d := sid % 32
	sid /= 32
	c := sid % 32
	sid /= 32
	b := sid % 32
	sid /= 32
	a := sid % 32

	buf := [4]byte{
		alphabet[a],
		alphabet[b],
		alphabet[c],
		alphabet[d],
	}
	return string(buf[:])
}

// Parse decodes exactly 4 base32 characters into a SID. Any deviation
// (wrong length, non-alphabet byte) returns 0, the hub's reserved SID.
func Parse(s string) SID {
	if len(s) != 4 {
		return 0
	}
	var out SID
	for i := 0; i < 4; i++ {
		c := s[i]
		if c >= 128 {
			return 0
		}
		v := values[c]
		if v < 0 {
			return 0
		}
		out = out*32 + SID(v)
	}
	return out
}

// Owner identifies whatever occupies a pool slot. Implementations are
// typically *user.User; the pool itself is owner-agnostic.
type Owner interface{}

// errFull is the type of ErrFull.
type errFull struct{}

func (errFull) Error() string { return "sid: pool is full" }

// ErrFull is returned by Allocate when the pool has no free slot.
var ErrFull error = errFull{}

// Pool is a fixed-capacity SID allocator. Slot 0 is permanently
// reserved for the hub itself and is never returned by Allocate.
//
// Allocation uses a rolling cursor that scans forward (wrapping within
// [1, capacity]) from the last allocated position, favoring reuse of
// the slot that has been empty the longest — mirroring uhub's
// sid_alloc, which increments a monotonic counter and walks forward
// modulo the pool size until it finds an empty slot.
type Pool struct {
	mu   sync.Mutex
	cap  SID // capacity, i.e. highest valid non-zero SID
	next SID // rolling cursor, unbounded counter mapped into [1, cap] by 1 + (next-1) % cap
	slot []Owner
}

// NewPool creates a pool that can lend capacity distinct SIDs, in
// [1, capacity]. Slot 0 is reserved for the hub; Lookup(0) always
// returns nil.
func NewPool(capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	p := &Pool{
		cap:  SID(capacity),
		slot: make([]Owner, capacity+1), // index 0..capacity
	}
	return p
}

// Capacity returns the maximum number of non-hub SIDs this pool can
// lend concurrently.
func (p *Pool) Capacity() int {
	return int(p.cap)
}

// Len returns the number of SIDs currently allocated.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := 1; i < len(p.slot); i++ {
		if p.slot[i] != nil {
			n++
		}
	}
	return n
}

// Allocate lends the owner a free SID in [1, capacity], or returns
// ErrFull if every slot is occupied.
func (p *Pool) Allocate(owner Owner) (SID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cap == 0 {
		return 0, ErrFull
	}
	for i := SID(0); i <= p.cap; i++ {
		p.next++
		n := 1 + (p.next-1)%p.cap
		if p.slot[n] == nil {
			p.slot[n] = owner
			return n, nil
		}
	}
	return 0, ErrFull
}

// Release frees sid, making it eligible for reuse. It is a no-op if
// the slot is already empty, out of range, or the reserved hub SID.
func (p *Pool) Release(sid SID) {
	if sid == 0 || sid > p.cap {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slot[sid] = nil
}

// Lookup returns the current owner of sid, or nil if the slot is
// empty, out of range, or the reserved hub SID (0).
func (p *Pool) Lookup(sid SID) Owner {
	if sid == 0 || sid > p.cap {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slot[sid]
}

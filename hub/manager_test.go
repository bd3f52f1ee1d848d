package hub

import (
	"sync"
	"testing"

	"github.com/direct-connect/adchub/adc"
	"github.com/direct-connect/adchub/internal/sid"
	"github.com/direct-connect/adchub/internal/user"
)

func TestManagerAddRemoveLookup(t *testing.T) {
	m := NewManager()
	u := user.New(sid.Parse("AAAB"))
	u.Nick = "alice"
	u.CID = "CID-ALICE"
	m.Add(u)

	if got, ok := m.LookupBySID(u.SID); !ok || got != u {
		t.Fatalf("LookupBySID: got %v, %v", got, ok)
	}
	if got, ok := m.LookupByNick("ALICE"); !ok || got != u {
		t.Fatalf("LookupByNick is not case-insensitive: got %v, %v", got, ok)
	}
	if got, ok := m.LookupByCID("CID-ALICE"); !ok || got != u {
		t.Fatalf("LookupByCID: got %v, %v", got, ok)
	}

	m.Remove(u)
	if _, ok := m.LookupBySID(u.SID); ok {
		t.Fatalf("expected user gone after Remove")
	}
}

// TestManagerConcurrentAccess runs Add/Remove/Broadcast/lookups from
// many goroutines at once, the shape every connection goroutine
// produces in the live hub. Run with -race: an unguarded map here
// crashes the process with "concurrent map writes" rather than
// merely racing, so this test is meaningful even without the race
// detector.
func TestManagerConcurrentAccess(t *testing.T) {
	m := NewManager()
	const n = 64
	var wg sync.WaitGroup

	infCmd, err := adc.NewCommand(adc.Broadcast, adc.TypeINF)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := user.New(sid.SID(i + 1))
			u.Nick = "user"
			u.CID = "cid"
			m.Add(u)

			msg := adc.New(infCmd)
			msg.SetSource(u.SID)
			m.Broadcast(nullSender{}, msg, All)
			m.LookupBySID(u.SID)
			m.LookupByNick(u.Nick)
			m.LookupByCID(u.CID)
			m.CountByAddress(u.Addr)
			m.Len()
			m.Remove(u)
		}(i)
	}
	wg.Wait()
}

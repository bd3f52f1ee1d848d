package hub

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/direct-connect/adchub/internal/sid"
	"github.com/direct-connect/adchub/internal/user"
	"github.com/direct-connect/adchub/plugin"
)

type discardWriter struct{}

func (discardWriter) Write(b []byte) (int, error) { return len(b), nil }

// TestNetSenderConcurrentAccess exercises register/Send/unregister
// from many goroutines at once, the same shape every connection
// goroutine produces against the hub's single netSender instance.
func TestNetSenderConcurrentAccess(t *testing.T) {
	ns := newNetSender()
	const n = 64
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := sid.SID(i + 1)
			ns.register(s, discardWriter{})
			ns.Send(&user.User{SID: s}, []byte("hi"))
			ns.unregister(s)
		}(i)
	}
	wg.Wait()
}

func TestHandleConnPlainADCReachesNormalAndBroadcasts(t *testing.T) {
	cfg := NewConfig()
	h := New(cfg, NewNetSender(), plugin.NewChain())

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		h.HandleConn(server, nil)
		close(done)
	}()

	br := bufio.NewReader(client)
	write := func(s string) {
		if _, err := client.Write([]byte(s)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write("HSUP ADBASE ADTIGR\n")
	write("BINF AAAA ID" + strings.Repeat("A", 39) + " NIalice\n")
	write("HPAS password\n")
	write("BMSG AAAA hello\n")

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("expected the chat broadcast echoed back to the sender, got err: %v", err)
	}
	if !strings.Contains(line, "hello") {
		t.Fatalf("expected broadcast frame to contain the message, got %q", line)
	}

	client.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("HandleConn did not return after client close")
	}
}

package sid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringBoundaries(t *testing.T) {
	cases := []struct {
		sid  SID
		want string
	}{
		{0, "AAAA"},
		{32, "AABA"},
		{1024, "ABAA"},
		{32768, "BAAA"},
		{1048575, "7777"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, String(c.sid))
	}
}

func TestRoundTrip(t *testing.T) {
	for s := SID(0); s <= Max; s += 997 {
		require.Equal(t, s, Parse(String(s)))
	}
	require.Equal(t, Max, Parse(String(Max)))
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "AAA", "AAAAA", "aaaa", "A A1", "----"} {
		require.Zerof(t, Parse(s), "Parse(%q) should be rejected", s)
	}
}

func TestPoolReservesHubSlot(t *testing.T) {
	p := NewPool(4)
	require.Nil(t, p.Lookup(0))
}

func TestPoolAllocateFull(t *testing.T) {
	p := NewPool(4)
	seen := map[SID]bool{}
	for i := 0; i < 4; i++ {
		s, err := p.Allocate(i)
		require.NoError(t, err)
		require.NotZero(t, s)
		require.LessOrEqual(t, int(s), 4)
		require.False(t, seen[s], "sid %d allocated twice", s)
		seen[s] = true
	}
	_, err := p.Allocate("overflow")
	require.ErrorIs(t, err, ErrFull)
}

func TestPoolReuseAfterRelease(t *testing.T) {
	p := NewPool(4)
	var allocated []SID
	for i := 0; i < 4; i++ {
		s, err := p.Allocate(i)
		require.NoError(t, err)
		allocated = append(allocated, s)
	}

	freed := allocated[1]
	p.Release(freed)
	require.Nil(t, p.Lookup(freed))

	reused, err := p.Allocate("new-owner")
	require.NoError(t, err)
	require.NotZero(t, reused)
	require.LessOrEqual(t, int(reused), 4)
	require.Equal(t, "new-owner", p.Lookup(reused))
}

func TestPoolReleaseEmptyIsNoop(t *testing.T) {
	p := NewPool(4)
	p.Release(2) // never allocated
	require.Zero(t, p.Len())
}

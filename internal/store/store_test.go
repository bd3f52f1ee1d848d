package store

import (
	"context"
	"testing"
	"time"
)

func TestBanRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.PutBan(ctx, Ban{Range: "10.0.0.0/24", Reason: "abuse"}); err != nil {
		t.Fatalf("PutBan: %v", err)
	}
	banned, err := s.IsBanned(ctx, "10.0.0.5")
	if err != nil {
		t.Fatalf("IsBanned: %v", err)
	}
	if !banned {
		t.Fatalf("expected 10.0.0.5 to be banned")
	}
	banned, err = s.IsBanned(ctx, "10.0.1.5")
	if err != nil {
		t.Fatalf("IsBanned: %v", err)
	}
	if banned {
		t.Fatalf("expected 10.0.1.5 to be outside the ban range")
	}

	if err := s.PutBan(ctx, Ban{Range: "192.168.0.1-192.168.0.2", Reason: "expired", Expiry: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("PutBan: %v", err)
	}
	banned, err = s.IsBanned(ctx, "192.168.0.1")
	if err != nil {
		t.Fatalf("IsBanned: %v", err)
	}
	if banned {
		t.Fatalf("expected expired ban to not apply")
	}
}

func TestProfileInheritance(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.PutProfile(ctx, Profile{Name: "base", Settings: map[string]string{"motd": "welcome"}}); err != nil {
		t.Fatalf("PutProfile(base): %v", err)
	}
	if err := s.PutProfile(ctx, Profile{Name: "vip", Parent: "base", Settings: map[string]string{"color": "gold"}}); err != nil {
		t.Fatalf("PutProfile(vip): %v", err)
	}

	p, ok, err := s.GetProfile(ctx, "vip")
	if err != nil || !ok {
		t.Fatalf("GetProfile: ok=%v err=%v", ok, err)
	}
	if p.Settings["motd"] != "welcome" || p.Settings["color"] != "gold" {
		t.Fatalf("got %+v", p.Settings)
	}
}

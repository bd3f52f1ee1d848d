// Package store keeps the IP ban list and named permission profiles,
// backed by hidal-go/hidalgo's legacy nosql interfaces (SPEC_FULL.md
// §4.Q). No built-in chat command reads or writes it.
//
// Grounded on the teacher's hidal-go dependency declaration (no usage
// site was retrieved, so the call shape follows hidalgo/legacy/nosql's
// documented in-memory KV implementation) and the teacher's
// cmd/go-hub/cmd/profiles.go name -> parent -> settings shape.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hidal-go/hidalgo/legacy/nosql"
	"github.com/hidal-go/hidalgo/legacy/nosql/all"

	"github.com/direct-connect/adchub/internal/netaddr"
)

const (
	colBans     = "bans"
	colProfiles = "profiles"
)

// Ban records one entry in the IP ban list.
type Ban struct {
	Range  string // CIDR or lo-hi form, parseable by internal/netaddr
	Reason string
	Expiry time.Time // zero means permanent
}

// Profile is a named permission bundle: arbitrary settings,
// optionally inheriting from a parent profile.
type Profile struct {
	Name     string
	Parent   string
	Settings map[string]string
}

// Store wraps a nosql.Database for the hub's ban/profile tables.
type Store struct {
	db nosql.Database
}

// Open opens (or creates) an in-memory nosql database registered
// under name — "memory" ships with hidalgo's nosql/all registry and
// requires no external service, matching this build's "bundled build"
// scope (SPEC_FULL.md §4.Q).
func Open(ctx context.Context, name string) (*Store, error) {
	db, err := all.OpenPath(name, "", nil)
	if err != nil {
		return nil, fmt.Errorf("store: opening %q: %w", name, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// PutBan inserts or replaces a ban entry keyed by its address range.
func (s *Store) PutBan(ctx context.Context, b Ban) error {
	if _, err := netaddr.ParseRange(b.Range); err != nil {
		return fmt.Errorf("store: invalid ban range: %w", err)
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	col, err := s.db.Collection(ctx, colBans)
	if err != nil {
		return err
	}
	return col.Update(nosql.Key{b.Range}).Upsert(nosql.Document{"data": nosql.String(data)})
}

// DeleteBan removes the ban entry for rangeText, if present.
func (s *Store) DeleteBan(ctx context.Context, rangeText string) error {
	col, err := s.db.Collection(ctx, colBans)
	if err != nil {
		return err
	}
	return col.Delete(nosql.Keys{{rangeText}}).Do(ctx)
}

// ListBans returns every stored ban.
func (s *Store) ListBans(ctx context.Context) ([]Ban, error) {
	col, err := s.db.Collection(ctx, colBans)
	if err != nil {
		return nil, err
	}
	var out []Ban
	cur := col.Query().Iterate()
	for cur.Next(ctx) {
		doc := cur.Doc()
		var b Ban
		if v, ok := doc["data"]; ok {
			if err := json.Unmarshal([]byte(v.(nosql.String)), &b); err == nil {
				out = append(out, b)
			}
		}
	}
	return out, cur.Err()
}

// IsBanned reports whether addr falls inside any stored ban that has
// not expired.
func (s *Store) IsBanned(ctx context.Context, addrText string) (bool, error) {
	bans, err := s.ListBans(ctx)
	if err != nil {
		return false, err
	}
	addr, err := netaddr.ParseAddress(addrText)
	if err != nil {
		return false, err
	}
	now := time.Now()
	for _, b := range bans {
		if !b.Expiry.IsZero() && now.After(b.Expiry) {
			continue
		}
		r, err := netaddr.ParseRange(b.Range)
		if err != nil {
			continue
		}
		if r.Contains(addr) {
			return true, nil
		}
	}
	return false, nil
}

// PutProfile inserts or replaces a named profile.
func (s *Store) PutProfile(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	col, err := s.db.Collection(ctx, colProfiles)
	if err != nil {
		return err
	}
	return col.Update(nosql.Key{p.Name}).Upsert(nosql.Document{"data": nosql.String(data)})
}

// GetProfile resolves a profile by name, following its Parent chain
// to merge inherited settings (parent entries filled first, child
// overrides last).
func (s *Store) GetProfile(ctx context.Context, name string) (Profile, bool, error) {
	col, err := s.db.Collection(ctx, colProfiles)
	if err != nil {
		return Profile{}, false, err
	}
	doc, err := col.FindByID(ctx, nosql.Key{name})
	if err != nil || doc == nil {
		return Profile{}, false, nil
	}
	var p Profile
	v, ok := doc["data"]
	if !ok {
		return Profile{}, false, nil
	}
	if err := json.Unmarshal([]byte(v.(nosql.String)), &p); err != nil {
		return Profile{}, false, err
	}
	merged := Profile{Name: p.Name, Parent: p.Parent, Settings: make(map[string]string)}
	if p.Parent != "" {
		if parent, ok, err := s.GetProfile(ctx, p.Parent); err == nil && ok {
			for k, v := range parent.Settings {
				merged.Settings[k] = v
			}
		}
	}
	for k, v := range p.Settings {
		merged.Settings[k] = v
	}
	return merged, true, nil
}

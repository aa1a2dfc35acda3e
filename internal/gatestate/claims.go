package gatestate

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/google/renameio/v2"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// claimsDocument is the on-disk shape of claims.json: path -> claim.
type claimsDocument map[string]types.FileClaim

// flockPath returns a sidecar lock-file path for advisory locking around
// claims.json, matching the teacher's own exclusive-lock-file convention
// (a JSON payload guarded by flock, not the JSON file itself).
func (s *Store) flockPath() string {
	return s.claimsPath() + ".lock"
}

// withClaimsLock runs fn while holding a non-blocking flock on the claims
// sidecar file. If the lock cannot be acquired, the caller proceeds
// fail-open per the shared-resource policy (claims are advisory, not a
// safety gate) and fn still runs -- the caller is expected to log a
// warning when acquired is false.
func (s *Store) withClaimsLock(fn func()) (acquired bool, err error) {
	f, err := os.OpenFile(s.flockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false, fmt.Errorf("gatestate: opening claims lock: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		fn()
		return false, nil
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	fn()
	return true, nil
}

func (s *Store) loadClaims() (claimsDocument, error) {
	data, err := os.ReadFile(s.claimsPath())
	if os.IsNotExist(err) {
		return claimsDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gatestate: reading claims: %w", err)
	}
	var doc claimsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return claimsDocument{}, nil // corrupt claims file: treat as empty
	}
	if doc == nil {
		doc = claimsDocument{}
	}
	return doc, nil
}

func (s *Store) saveClaims(doc claimsDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("gatestate: marshalling claims: %w", err)
	}
	if err := renameio.WriteFile(s.claimsPath(), data, 0o644); err != nil {
		return fmt.Errorf("gatestate: writing claims: %w", err)
	}
	return nil
}

// ClaimOwner returns the session id holding a live (non-stale) claim on
// path, or "" if the path is unclaimed or its claim has expired.
func (s *Store) ClaimOwner(path string) (string, error) {
	var owner string
	_, err := s.withClaimsLock(func() {
		doc, loadErr := s.loadClaims()
		if loadErr != nil {
			return
		}
		claim, ok := doc[path]
		if !ok || claim.Stale(time.Now()) {
			return
		}
		owner = claim.SessionID
	})
	return owner, err
}

// Claim records sessionID's claim on path, overwriting any stale or
// same-session claim. Claiming is fail-open: if the advisory lock cannot
// be acquired, the claim is still attempted without it and the caller is
// told the lock was not acquired.
func (s *Store) Claim(sessionID, path string) (acquired bool, err error) {
	return s.withClaimsLock(func() {
		doc, loadErr := s.loadClaims()
		if loadErr != nil {
			return
		}
		doc[path] = types.FileClaim{SessionID: sessionID, ClaimedAt: time.Now()}
		_ = s.saveClaims(doc)
	})
}

// ReleaseSessionClaims drops every claim held by sessionID, used at
// session end.
func (s *Store) ReleaseSessionClaims(sessionID string) error {
	_, err := s.withClaimsLock(func() {
		doc, loadErr := s.loadClaims()
		if loadErr != nil {
			return
		}
		changed := false
		for path, claim := range doc {
			if claim.SessionID == sessionID {
				delete(doc, path)
				changed = true
			}
		}
		if changed {
			_ = s.saveClaims(doc)
		}
	})
	return err
}

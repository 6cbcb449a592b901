// Package state persists the per-source sets of downloaded ids and
// content hashes, and holds the skip/repair decision logic.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Set is a snapshot of one persisted identifier set.
type Set map[string]bool

// NewSet builds a Set from its members.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = true
	}
	return s
}

// Add returns whether the member was newly inserted.
func (s Set) Add(member string) bool {
	if s[member] {
		return false
	}
	s[member] = true
	return true
}

// Store persists the two identifier sets per source. Writes are
// last-writer-wins; crash atomicity is not guaranteed.
type Store interface {
	LoadIDs(source string) (Set, error)
	SaveIDs(source string, ids Set) error
	LoadHashes(source string) (Set, error)
	SaveHashes(source string, hashes Set) error
}

// Reasons reported by Decide.
const (
	ReasonFileExists         = "file_exists"
	ReasonFileHashSeen       = "file_hash_seen"
	ReasonMissingFileButSeen = "missing_file_but_seen"
)

// Decision is the outcome of the skip/repair check for one candidate.
type Decision struct {
	Skip   bool
	Reason string
}

// Decide applies the three-way dedup policy over snapshots of the
// persisted sets. File existence is authoritative over a recorded id:
// an id without a local file means the artifact must be re-fetched
// (repair download), because the id alone cannot prove the artifact is
// retrievable.
func Decide(key, localPath string, ids, hashes Set, useHash bool) Decision {
	if info, err := os.Stat(localPath); err == nil && info.Size() > 0 {
		if useHash {
			if h, err := HashFile(localPath); err == nil && hashes[h] {
				return Decision{Skip: true, Reason: ReasonFileHashSeen}
			}
		}
		return Decision{Skip: true, Reason: ReasonFileExists}
	}
	if key != "" && ids[key] {
		return Decision{Skip: false, Reason: ReasonMissingFileButSeen}
	}
	return Decision{}
}

// HashFile returns the hex-encoded SHA-256 of the file contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

const (
	idsFile    = "downloaded_ids.json"
	hashesFile = "downloaded_hashes.json"
)

// FileStore keeps each set as a sorted JSON array under
// <root>/<source>/. The files are compatible with the historical state
// directory layout, so existing state carries over.
type FileStore struct {
	root string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// LoadIDs loads the downloaded-id set for a source.
func (s *FileStore) LoadIDs(source string) (Set, error) {
	return s.load(source, idsFile)
}

// SaveIDs overwrites the downloaded-id set for a source.
func (s *FileStore) SaveIDs(source string, ids Set) error {
	return s.save(source, idsFile, ids)
}

// LoadHashes loads the content-hash set for a source.
func (s *FileStore) LoadHashes(source string) (Set, error) {
	return s.load(source, hashesFile)
}

// SaveHashes overwrites the content-hash set for a source.
func (s *FileStore) SaveHashes(source string, hashes Set) error {
	return s.save(source, hashesFile, hashes)
}

func (s *FileStore) path(source, name string) string {
	return filepath.Join(s.root, source, name)
}

func (s *FileStore) load(source, name string) (Set, error) {
	data, err := os.ReadFile(s.path(source, name))
	if err != nil {
		if os.IsNotExist(err) {
			return NewSet(), nil
		}
		return nil, err
	}
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		// Corrupt state files start over empty rather than blocking a run.
		return NewSet(), nil
	}
	return NewSet(members...), nil
}

func (s *FileStore) save(source, name string, set Set) error {
	if err := os.MkdirAll(filepath.Join(s.root, source), 0o755); err != nil {
		return err
	}
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)

	data, err := json.MarshalIndent(members, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(source, name), data, 0o644)
}

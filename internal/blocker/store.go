package blocker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	RulesFile = "adblocker.bin"
	MetaFile  = "adblocker.json"

	// blobHeader opens every rule blob. It is a filter list comment, so the
	// body stays valid list text.
	blobHeader = "! cortex-rules v2\n"
)

// Meta is the refresh metadata persisted next to the rule blob.
type Meta struct {
	FetchedAt int64 `json:"fetchedAt"`
}

// Time returns FetchedAt as a time.Time.
func (m Meta) Time() time.Time { return time.UnixMilli(m.FetchedAt) }

// Store persists the merged rule text and its metadata in a directory.
// Writes go to a temp file that is synced and renamed over the target, so a
// failed write never leaves a partial file behind.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blocker store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// ReadMeta returns the stored metadata. A missing file returns ok=false and
// no error.
func (s *Store) ReadMeta() (Meta, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, MetaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Meta{}, false, nil
		}
		return Meta{}, false, fmt.Errorf("blocker store: read meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, false, fmt.Errorf("blocker store: unmarshal meta: %w", err)
	}
	return meta, true, nil
}

// Save persists rules and then meta. Meta is only written once the rule blob
// is in place.
func (s *Store) Save(rules []string, meta Meta) error {
	var raw bytes.Buffer
	raw.WriteString(blobHeader)
	for _, r := range rules {
		raw.WriteString(r)
		raw.WriteByte('\n')
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("blocker store: zstd writer: %w", err)
	}
	compressed := enc.EncodeAll(raw.Bytes(), nil)
	if err := enc.Close(); err != nil {
		slog.Debug("zstd encoder close failed", "error", err)
	}

	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("blocker store: marshal meta: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(filepath.Join(s.dir, RulesFile), compressed); err != nil {
		return fmt.Errorf("blocker store: write rules: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, MetaFile), metaData); err != nil {
		return fmt.Errorf("blocker store: write meta: %w", err)
	}
	return nil
}

// LoadRules reads and decompresses the persisted rule blob.
func (s *Store) LoadRules() ([]string, error) {
	s.mu.RLock()
	compressed, err := os.ReadFile(filepath.Join(s.dir, RulesFile))
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("blocker store: read rules: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("blocker store: zstd reader: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("blocker store: decompress rules: %w", err)
	}

	body, ok := strings.CutPrefix(string(raw), blobHeader)
	if !ok {
		return nil, errors.New("blocker store: unsupported rule blob version")
	}
	body = strings.TrimSuffix(body, "\n")
	if body == "" {
		return nil, nil
	}
	return strings.Split(body, "\n"), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Debug("temp file cleanup failed", "path", tmpName, "error", err)
		}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

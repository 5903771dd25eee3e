package history

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store maps media paths to their last playback offset in milliseconds.
// Entries are sharded by the media's folder; every Set rewrites its whole shard.
type Store struct {
	dir string
	log *zap.Logger

	mu     sync.Mutex
	shards map[string]*shard
}

type shard struct {
	mu      sync.Mutex
	name    string
	entries map[string]int64
}

// Open loads every shard under dir, creating it if needed. An unreadable shard
// is logged and starts empty.
func Open(log *zap.Logger, dir string) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}
	s := &Store{dir: dir, log: log, shards: map[string]*shard{}}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".json")
		sh := &shard{name: name, entries: map[string]int64{}}
		err := readJSON(file, &sh.entries)
		if err == nil && sh.entries == nil {
			err = errors.New("empty shard document")
		}
		if err != nil {
			log.Warn("history shard unreadable", zap.String("shard", name), zap.Error(err))
			sh.entries = map[string]int64{}
		}
		s.shards[name] = sh
	}
	log.Debug("history loaded", zap.Int("shards", len(s.shards)))
	return s, nil
}

// GroupKey is the sharding key of a media path: its folder.
func GroupKey(mediaPath string) string {
	p := strings.Trim(mediaPath, "/")
	dir := path.Dir(p)
	if dir == "" {
		return "."
	}
	return dir
}

// ShardName hashes a grouping key into a shard file stem.
func ShardName(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Get returns the stored offset or zero.
func (s *Store) Get(mediaPath string) int64 {
	sh := s.lookup(mediaPath, false)
	if sh == nil {
		return 0
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.entries[mediaPath]
}

// Set stores an offset and persists the shard before returning. A failed
// write leaves the previous offset in place.
func (s *Store) Set(mediaPath string, offsetMS int64) error {
	sh := s.lookup(mediaPath, true)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	prev, had := sh.entries[mediaPath]
	sh.entries[mediaPath] = offsetMS
	if err := writeJSON(s.shardPath(sh.name), sh.entries); err != nil {
		if had {
			sh.entries[mediaPath] = prev
		} else {
			delete(sh.entries, mediaPath)
		}
		return fmt.Errorf("persist history shard %s: %w", sh.name, err)
	}
	return nil
}

// All returns a copy of every entry.
func (s *Store) All() map[string]int64 {
	s.mu.Lock()
	shards := make([]*shard, 0, len(s.shards))
	for _, sh := range s.shards {
		shards = append(shards, sh)
	}
	s.mu.Unlock()

	out := map[string]int64{}
	for _, sh := range shards {
		sh.mu.Lock()
		for k, v := range sh.entries {
			out[k] = v
		}
		sh.mu.Unlock()
	}
	return out
}

func (s *Store) lookup(mediaPath string, create bool) *shard {
	name := ShardName(GroupKey(mediaPath))
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shards[name]
	if !ok && create {
		sh = &shard{name: name, entries: map[string]int64{}}
		s.shards[name] = sh
	}
	return sh
}

func (s *Store) shardPath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func readJSON(p string, v any) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(p string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp.%d", p, time.Now().UnixNano())
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

package tags

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
	"go.uber.org/zap"
)

// Indexer receives the full record set after every successful write.
type Indexer interface {
	Rebuild(records []Record)
}

// Observer is told the outcome of every durable write.
type Observer interface {
	RecordStoreWrite(result string)
	SetRecords(count int)
}

// api keeps non-ASCII text readable and record fields in a stable order.
var api = sonic.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// Store is the durable tag cache. Records keep insertion order, which is
// also the order search results are returned in. A single mutex serializes
// writers; readers see a consistent snapshot.
type Store struct {
	path string
	log  *logging.Logger

	mu      sync.RWMutex
	records map[string]Record
	order   []string
	indexer Indexer
	obs     Observer
	// dirty is set while memory holds writes the file is missing
	dirty bool
}

// NewStore creates an empty store backed by path. Call Load to read it.
func NewStore(path string, log *logging.Logger) *Store {
	return &Store{
		path:    path,
		log:     log.Named("store"),
		records: make(map[string]Record),
	}
}

// Path returns the durable file location.
func (s *Store) Path() string {
	return s.path
}

// SetIndexer registers the derived index and rebuilds it from current contents.
func (s *Store) SetIndexer(ix Indexer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indexer = ix
	s.reindex()
}

// SetObserver registers a receiver for write outcomes and the record count.
func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.obs = o
	if o != nil {
		o.SetRecords(len(s.order))
	}
}

// Load reads the durable file. A missing or unreadable file leaves the store empty.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record)
	s.order = nil
	s.dirty = false
	defer s.reindex()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("store file unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	records, order, err := decode(data)
	if err != nil {
		s.log.Warn("store file corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	s.records, s.order = records, order
	s.log.Info("store loaded", zap.String("path", s.path), zap.Int("records", len(order)))
}

// decode reads a top-level object keeping its key order.
func decode(data []byte) (map[string]Record, []string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]Record{}, nil, nil
	}

	root, err := sonic.Get(data)
	if err != nil {
		return nil, nil, err
	}
	if root.TypeSafe() != ast.V_OBJECT {
		return nil, nil, fmt.Errorf("store root is not an object")
	}

	records := make(map[string]Record)
	var order []string
	var walkErr error

	err = root.ForEach(func(path ast.Sequence, node *ast.Node) bool {
		if path.Key == nil {
			return true
		}
		raw, err := node.Raw()
		if err != nil {
			walkErr = err
			return false
		}
		var rec Record
		if err := api.UnmarshalFromString(raw, &rec); err != nil {
			walkErr = fmt.Errorf("record %q: %w", *path.Key, err)
			return false
		}

		key := NormalizeTag(*path.Key)
		if rec.Tag == "" {
			rec.Tag = key
		}
		if _, seen := records[key]; !seen {
			order = append(order, key)
		}
		records[key] = rec
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return records, order, nil
}

// Get returns the record for tag. An exact key match wins; otherwise the
// first case-insensitive match in insertion order is returned.
func (s *Store) Get(tag string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.resolve(tag)
	if !ok {
		return Record{}, ErrNotFound
	}
	return s.records[key].clone(), nil
}

// resolve maps tag to its stored key. Caller holds the lock.
func (s *Store) resolve(tag string) (string, bool) {
	key := NormalizeTag(tag)
	if _, ok := s.records[key]; ok {
		return key, true
	}
	for _, k := range s.order {
		if strings.EqualFold(k, key) {
			return k, true
		}
	}
	return "", false
}

// Contains reports whether tag has a record.
func (s *Store) Contains(tag string) bool {
	_, err := s.Get(tag)
	return err == nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// All returns every record in insertion order.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) snapshot() []Record {
	out := make([]Record, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.records[k].clone())
	}
	return out
}

// Upsert inserts or replaces rec under its normalized tag, persists, and rebuilds the index.
func (s *Store) Upsert(rec Record) error {
	rec.Tag = NormalizeTag(rec.Tag)
	if rec.Tag == "" {
		return fmt.Errorf("record has empty tag")
	}
	if rec.Posts < 0 {
		rec.Posts = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Tag]; !ok {
		s.order = append(s.order, rec.Tag)
	}
	s.records[rec.Tag] = rec.clone()
	return s.commit()
}

// UpdateTranslation sets both translation fields of an existing record,
// resolving tag the same way Get does.
func (s *Store) UpdateTranslation(tag, tagTranslation, meaningTranslation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.resolve(tag)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, NormalizeTag(tag))
	}
	rec := s.records[key]

	rec.TagTranslation = tagTranslation
	rec.MeaningTranslation = meaningTranslation
	s.records[key] = rec
	return s.commit()
}

// Persist retries a write that failed earlier. It does nothing when the
// file already matches memory.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.flush()
}

// commit flushes and then rebuilds the index. Caller holds the write lock.
func (s *Store) commit() error {
	err := s.flush()
	s.reindex()
	return err
}

func (s *Store) flush() error {
	err := s.persist()
	s.dirty = err != nil
	if s.obs != nil {
		result := "ok"
		if err != nil {
			result = "failed"
		}
		s.obs.RecordStoreWrite(result)
		s.obs.SetRecords(len(s.order))
	}
	return err
}

func (s *Store) reindex() {
	if s.indexer != nil {
		s.indexer.Rebuild(s.snapshot())
	}
}

// persist rewrites the file through a temp file and rename so a crash never
// leaves a half-written store behind.
func (s *Store) persist() error {
	data, err := s.encode()
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}

	s.log.Debug("store persisted", zap.String("path", s.path), zap.Int("records", len(s.order)))
	return nil
}

// encode renders the records as a pretty-printed object in insertion order.
func (s *Store) encode() ([]byte, error) {
	var buf bytes.Buffer
	if len(s.order) == 0 {
		buf.WriteString("{}\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("{\n")
	for i, key := range s.order {
		k, err := api.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := api.MarshalIndent(s.records[key], "  ", "  ")
		if err != nil {
			return nil, err
		}

		buf.WriteString("  ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
		if i < len(s.order)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

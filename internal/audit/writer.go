package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tkingovr/originguard/api"
)

// DefaultMemoryRecords bounds how many records are kept for queries.
const DefaultMemoryRecords = 10000

const (
	filePrefix = "requests-"
	fileSuffix = ".jsonl"
)

// JSONLStore is an append-only JSONL file store with date-based rotation.
type JSONLStore struct {
	mu          sync.Mutex
	dir         string
	currentDate string
	file        *os.File
	writer      *bufio.Writer

	// In-memory buffer for queries and stats (bounded)
	records []*api.RequestRecord
	maxMem  int

	// Subscribers for real-time streaming
	subMu   sync.RWMutex
	subs    map[int]chan *api.RequestRecord
	nextSub int
}

// NewJSONLStore creates a JSONL store writing to dir. Records already in dir
// are loaded so queries cover earlier runs.
func NewJSONLStore(dir string) (*JSONLStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating request log directory: %w", err)
	}
	s := &JSONLStore{
		dir:    dir,
		maxMem: DefaultMemoryRecords,
		subs:   make(map[int]chan *api.RequestRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load fills the query buffer from existing log files, oldest first.
func (s *JSONLStore) load() error {
	paths, err := filepath.Glob(filepath.Join(s.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return fmt.Errorf("listing request logs: %w", err)
	}
	// Dated names sort chronologically.
	sort.Strings(paths)
	for _, path := range paths {
		if err := s.loadFile(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONLStore) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening request log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var r api.RequestRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			// torn write
			continue
		}
		s.remember(&r)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading request log %s: %w", path, err)
	}
	return nil
}

func (s *JSONLStore) remember(r *api.RequestRecord) {
	if len(s.records) >= s.maxMem {
		s.records = s.records[1:]
	}
	s.records = append(s.records, r)
}

func (s *JSONLStore) Write(_ context.Context, record *api.RequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	// Rotate file if date changed
	dateStr := record.Timestamp.Format("2006-01-02")
	if dateStr != s.currentDate {
		if err := s.rotate(dateStr); err != nil {
			return err
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling request record: %w", err)
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}

	s.remember(record)
	s.notifySubscribers(record)

	return nil
}

func (s *JSONLStore) Query(_ context.Context, filter api.QueryFilter) ([]*api.RequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*api.RequestRecord
	for _, r := range s.records {
		if matchesFilter(r, filter) {
			results = append(results, r)
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return nil, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results, nil
}

func (s *JSONLStore) Stats(_ context.Context) (*api.RequestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &api.RequestStats{
		ByHost:   make(map[string]int),
		ByStatus: make(map[int]int),
	}

	for _, r := range s.records {
		stats.TotalRequests++
		if r.Started {
			stats.Completed++
		} else {
			stats.NotStarted++
		}
		stats.BytesRead += r.BytesRead
		if r.Host != "" {
			stats.ByHost[r.Host]++
		}
		if r.StatusCode != 0 {
			stats.ByStatus[r.StatusCode]++
		}
	}

	return stats, nil
}

func (s *JSONLStore) Subscribe(_ context.Context) (<-chan *api.RequestRecord, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan *api.RequestRecord, 100)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func (s *JSONLStore) rotate(dateStr string) error {
	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
	}

	path := filepath.Join(s.dir, filePrefix+dateStr+fileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("opening request log file: %w", err)
	}

	s.file = f
	s.writer = bufio.NewWriter(f)
	s.currentDate = dateStr
	return nil
}

func (s *JSONLStore) notifySubscribers(record *api.RequestRecord) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subs {
		select {
		case ch <- record:
		default:
			// Drop if subscriber is slow
		}
	}
}

func matchesFilter(r *api.RequestRecord, f api.QueryFilter) bool {
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	if f.Method != "" && !strings.EqualFold(r.Method, f.Method) {
		return false
	}
	if f.Host != "" && !strings.EqualFold(r.Host, f.Host) {
		return false
	}
	return true
}

package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"prdchat/app/model"

	"github.com/elliotchance/pie/v2"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps every session as one JSON line of a single file. The whole file is
// rewritten on each mutation, so it suits small single-process deployments.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions file: %w", err)
	}
	defer file.Close()

	return &FileStore{path: path}, nil
}

// fileContents holds the parsed sessions of the file plus the raw lines of other
// partitions, which are written back untouched.
type fileContents struct {
	records []record
	foreign []string
}

func (s *FileStore) load() (*fileContents, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sessions file: %w", err)
	}
	defer file.Close()

	contents := &fileContents{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err = json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse JSON line: %w", err)
		}

		if rec.PartitionKey != PartitionKey {
			contents.foreign = append(contents.foreign, line)
			continue
		}

		contents.records = append(contents.records, rec)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading sessions file: %w", err)
	}

	return contents, nil
}

func (s *FileStore) save(contents *fileContents) error {
	tmpPath := s.path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create/open sessions file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	for _, line := range contents.foreign {
		if _, err = writer.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("failed to write line: %w", err)
		}
	}

	for _, rec := range contents.records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		if _, err = writer.WriteString(string(data) + "\n"); err != nil {
			return fmt.Errorf("failed to write session: %w", err)
		}
	}

	if err = writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close sessions file: %w", err)
	}

	if err = os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace sessions file: %w", err)
	}

	return nil
}

func (c *fileContents) index(id string) int {
	return pie.FindFirstUsing(c.records, func(r record) bool { return r.RowKey == id })
}

func (s *FileStore) Create(_ context.Context, session *model.Session) error {
	rec, err := toRecord(session)
	if err != nil {
		return unavailable(err, "create", session.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return unavailable(err, "create", session.ID)
	}

	if contents.index(rec.RowKey) >= 0 {
		return unavailable(errAlreadyExists, "create", session.ID)
	}
	contents.records = append(contents.records, rec)

	if err = s.save(contents); err != nil {
		return unavailable(err, "create", session.ID)
	}

	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return nil, unavailable(err, "get", id)
	}

	idx := contents.index(id)
	if idx < 0 {
		return nil, notFound(id)
	}

	return contents.records[idx].toSession(), nil
}

func (s *FileStore) List(_ context.Context) ([]model.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return nil, unavailable(err, "list", "")
	}

	list := make([]model.Summary, 0, len(contents.records))
	for _, r := range contents.records {
		list = append(list, model.Summary{ID: r.RowKey, Name: r.Name})
	}

	return list, nil
}

func (s *FileStore) Update(_ context.Context, id string, update model.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return unavailable(err, "update", id)
	}

	idx := contents.index(id)
	if idx < 0 {
		return notFound(id)
	}

	if contents.records[idx], err = contents.records[idx].apply(update); err != nil {
		return unavailable(err, "update", id)
	}

	if err = s.save(contents); err != nil {
		return unavailable(err, "update", id)
	}

	return nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return unavailable(err, "delete", id)
	}

	if contents.index(id) < 0 {
		return nil
	}
	contents.records = pie.Filter(contents.records, func(r record) bool { return r.RowKey != id })

	if err = s.save(contents); err != nil {
		return unavailable(err, "delete", id)
	}

	return nil
}

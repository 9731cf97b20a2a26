package knowledge

import (
	"log/slog"
	"sync"

	"github.com/Veraticus/wastewise/internal/model"
)

// Store is the process-wide knowledge graph. The graph can be swapped at runtime;
// each lookup sees exactly one loaded graph.
type Store struct {
	graph  *Graph
	logger *slog.Logger
	path   string
	mu     sync.RWMutex
}

// NewStore wraps an already-loaded graph. path may be empty when the graph is built-in.
func NewStore(g *Graph, path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{graph: g, path: path, logger: logger}
}

// Open loads the graph at path, or the built-in graph when path is empty.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return NewStore(Default(), "", logger), nil
	}
	g, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStore(g, path, logger), nil
}

// Lookup finds the record for item in the current graph.
func (s *Store) Lookup(item string) (model.ClassificationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Lookup(item)
}

// Graph returns the current graph.
func (s *Store) Graph() *Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// Path returns the file the graph was loaded from, if any.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the graph file. On error the current graph stays in place.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	g, err := LoadFile(s.path)
	if err != nil {
		s.logger.Warn("knowledge graph reload failed, keeping previous graph",
			"path", s.path,
			"error", err)
		return err
	}

	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()

	s.logger.Info("knowledge graph reloaded",
		"path", s.path,
		"keywords", g.Len())
	return nil
}

package policy

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"
)

// FileSystem is the subset of file operations the Store needs.
type FileSystem interface {
	Stat(path string) (os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem implements FileSystem on the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (OSFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Store loads project policies lazily and caches them by resolved file path.
// Entries stay cached until Clear.
type Store struct {
	fs    FileSystem
	names []string
	log   logrus.FieldLogger

	mu    sync.Mutex
	cache map[string]*ProjectPolicy
}

// NewStore creates a Store that looks for the given file names, in order,
// in each project directory.
func NewStore(fs FileSystem, names []string, log logrus.FieldLogger) *Store {
	if fs == nil {
		panic("fs is required")
	}
	if len(names) == 0 {
		panic("names are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		fs:    fs,
		names: names,
		log:   log,
		cache: make(map[string]*ProjectPolicy),
	}
}

// Load returns the policy for projectDir. It never fails: a missing file
// yields the defaults, and an unreadable or malformed file yields the
// defaults plus a warning. The returned value is a copy.
func (s *Store) Load(projectDir string) *ProjectPolicy {
	path := s.resolve(projectDir)
	if path == "" {
		return DefaultPolicy()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.cache[path]; ok {
		return p.Clone()
	}

	p, err := s.parse(path)
	if err != nil {
		s.log.WithError(err).WithField("path", path).Warn("invalid project policy, using defaults")
		return DefaultPolicy()
	}
	s.cache[path] = p
	s.log.WithFields(logrus.Fields{
		"path":         path,
		"allowed":      len(p.AllowedCommands),
		"custom_tools": len(p.CustomTools),
	}).Debug("project policy loaded")
	return p.Clone()
}

// Clear drops every cached policy.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// resolve returns the first existing policy file in projectDir.
func (s *Store) resolve(projectDir string) string {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		dir = filepath.Clean(projectDir)
	}
	for _, name := range s.names {
		path := filepath.Join(dir, name)
		info, err := s.fs.Stat(path)
		if err == nil && !info.IsDir() {
			return path
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).WithField("path", path).Debug("cannot stat project policy")
		}
	}
	return ""
}

func (s *Store) parse(path string) (*ProjectPolicy, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	if p.CommitMessageTemplate == "" {
		p.CommitMessageTemplate = DefaultCommitMessageTemplate
	}
	p.Source = path
	return p, nil
}

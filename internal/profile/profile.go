// Package profile persists named connection configurations to a YAML file.
//
// The file holds credentials, so it is written with mode 0600 and replaced
// atomically on every change:
//
//	profiles:
//	  local-pg:
//	    engine: postgresql
//	    host: localhost
//	    username: app
//	    database: app
package profile

import (
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// DefaultFile is the profiles file name used when none is configured.
const DefaultFile = "profiles.yaml"

const filePerm = 0o600

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

type document struct {
	Profiles map[string]database.Config `yaml:"profiles"`
}

// Store reads and writes one profiles file. It is safe for concurrent use
// within a process; concurrent writers in other processes may lose updates.
type Store struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// NewStore returns a store backed by path. A nil fsys selects the OS
// filesystem. The file is created on the first Save.
func NewStore(fsys afero.Fs, path string) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if path == "" {
		path = DefaultFile
	}
	return &Store{fs: fsys, path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Save validates cfg and stores it under name, replacing any existing entry.
func (s *Store) Save(name string, cfg database.Config) error {
	if !validName.MatchString(name) {
		return errs.Newf(errs.ErrKindInvalidConfig, "invalid profile name %q", name)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Profiles[name] = cfg
	return s.store(doc)
}

// Get returns the profile stored under name.
func (s *Store) Get(name string) (database.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return database.Config{}, err
	}
	cfg, ok := doc.Profiles[name]
	if !ok {
		return database.Config{}, errs.Newf(errs.ErrKindNotFound, "profile %q not found", name)
	}
	return cfg, nil
}

// List returns the stored profile names, sorted.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Profiles))
	for name := range doc.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the profile stored under name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Profiles[name]; !ok {
		return errs.Newf(errs.ErrKindNotFound, "profile %q not found", name)
	}
	delete(doc.Profiles, name)
	return s.store(doc)
}

func (s *Store) load() (*document, error) {
	doc := &document{}

	raw, err := afero.ReadFile(s.fs, s.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, doc); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidConfig, "failed to parse profiles file "+s.path, err)
		}
	case isNotExist(err):
	default:
		return nil, mapError(err, "failed to read profiles file "+s.path)
	}

	if doc.Profiles == nil {
		doc.Profiles = map[string]database.Config{}
	}
	return doc, nil
}

func (s *Store) store(doc *document) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidConfig, "failed to encode profiles", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o700); err != nil {
		return mapError(err, "failed to create profiles directory")
	}

	tmp, err := afero.TempFile(s.fs, dir, ".profiles-*.yaml")
	if err != nil {
		return mapError(err, "failed to write profiles file")
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(raw)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = s.fs.Chmod(tmpName, filePerm)
	}
	if err == nil {
		err = s.fs.Rename(tmpName, s.path)
	}
	if err != nil {
		_ = s.fs.Remove(tmpName)
		return mapError(err, "failed to write profiles file")
	}
	return nil
}

// Package tokenfile stores credentials in a single JSON file keyed by
// identity. Every access holds an flock on a sibling lock file, so several
// processes sharing the file never interleave partial writes.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// FileName is the default token file name inside the config directory.
const FileName = "tokens.json"

// corruptSuffix names the copy an undecodable token file is moved to.
const corruptSuffix = ".corrupt"

var errCorrupt = errors.New("token file is corrupt")

// Ensure Store implements the interface.
var _ driven.CredentialStore = (*Store)(nil)

// Store is a file-backed driven.CredentialStore.
type Store struct {
	path     string
	lockPath string
}

// NewStore creates a store writing to path. The parent directory is created
// if needed.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create token directory: %w", err)
	}
	return &Store{path: path, lockPath: path + ".lock"}, nil
}

// Path returns the token file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the credential stored under key.
func (s *Store) Load(key string) (*domain.Credential, error) {
	var cred *domain.Credential
	err := s.withLock(unix.LOCK_SH, func() error {
		all, err := s.read()
		if err != nil {
			return err
		}
		c, ok := all[key]
		if !ok {
			return domain.ErrNotFound
		}
		cred = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Save stores cred under key. The whole file is read, modified and
// rewritten under an exclusive lock. An undecodable file is moved aside to
// <path>.corrupt and replaced by a fresh one.
func (s *Store) Save(key string, cred domain.Credential) error {
	return s.withLock(unix.LOCK_EX, func() error {
		all, err := s.read()
		if errors.Is(err, errCorrupt) {
			if err := os.Rename(s.path, s.path+corruptSuffix); err != nil {
				return fmt.Errorf("move corrupt token file aside: %w", err)
			}
			logger.Warn("Token file %s was unreadable, moved to %s%s", s.path, s.path, corruptSuffix)
			all, err = make(map[string]domain.Credential), nil
		}
		if err != nil {
			return err
		}
		all[key] = cred
		return s.write(all)
	})
}

func (s *Store) withLock(how int, fn func() error) error {
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open token lock: %w", err)
	}
	defer f.Close()

	if err := flock(f, how); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer func() { _ = unix.Flock(int(f.Fd()), unix.LOCK_UN) }()

	return fn()
}

// flock retries when interrupted by a signal.
func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// read returns the stored map. A missing or empty file is an empty map; an
// undecodable file is reported as errCorrupt.
func (s *Store) read() (map[string]domain.Credential, error) {
	all := make(map[string]domain.Credential)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", errCorrupt, s.path, err)
	}
	return all, nil
}

func (s *Store) write(all map[string]domain.Credential) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

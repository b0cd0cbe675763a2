package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Scratch is the ephemeral host-side state backing one sandbox instance:
// a unique identifier and a private directory for the writable workspace,
// fake home/tmp mounts, and generated profile files.
//
// Cleanup is idempotent and safe after partial failure. Scratch contents
// are transient and never read back by any other component.
type Scratch struct {
	mu      sync.Mutex
	id      string
	root    string
	removed bool
}

// NewScratch mints a fresh instance identifier and creates the scratch
// directory tree under the host temp directory.
func NewScratch(prefix string) (*Scratch, error) {
	id := fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])

	root := filepath.Join(os.TempDir(), "cage", id)
	for _, sub := range []string{"workspace", "home", "tmp"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o700); err != nil {
			os.RemoveAll(root)
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
	}

	return &Scratch{id: id, root: root}, nil
}

// ID returns the unique instance identifier.
func (s *Scratch) ID() string { return s.id }

// Root returns the scratch directory root.
func (s *Scratch) Root() string { return s.root }

// Workspace returns the host directory backing the in-sandbox workspace.
func (s *Scratch) Workspace() string { return filepath.Join(s.root, "workspace") }

// Home returns the host directory backing the sandboxed home.
func (s *Scratch) Home() string { return filepath.Join(s.root, "home") }

// Tmp returns the host directory backing the sandboxed /tmp.
func (s *Scratch) Tmp() string { return filepath.Join(s.root, "tmp") }

// CallToken returns a short unique token for one Execute call. Backends
// that name mutually exclusive resources (container names) combine it
// with the instance id so concurrent calls on one instance do not race.
func (s *Scratch) CallToken() string {
	return uuid.NewString()[:8]
}

// Remove deletes the scratch tree. Safe to call multiple times; a second
// call is a no-op.
func (s *Scratch) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed {
		return nil
	}

	s.removed = true
	return os.RemoveAll(s.root)
}

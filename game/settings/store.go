package settings

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrStoreClosed    = errors.New("settings store is closed")
	ErrUnknownImage   = errors.New("image not found in staged settings")
	ErrInvalidKind    = errors.New("invalid image kind")
	ErrCommitRejected = errors.New("commit rejected")
)

// ImageKind selects which staged slot an upload fills
type ImageKind string

const (
	KindCard     ImageKind = "card"
	KindLogo     ImageKind = "logo"
	KindCardBack ImageKind = "card_back"
)

// ParseImageKind validates an image kind, defaulting to KindCard
func ParseImageKind(raw string) (ImageKind, error) {
	switch ImageKind(raw) {
	case "", KindCard:
		return KindCard, nil
	case KindLogo, KindCardBack:
		return ImageKind(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

// CommitListener is told about newly committed settings. Returning an error
// rolls the commit back.
type CommitListener func(committed Settings) error

// Store holds the committed settings that drive the board and the staged
// copy edited by the admin surface. It owns the image arena: handles that
// neither copy references are released after every change.
type Store struct {
	commitMu  sync.Mutex
	mu        sync.RWMutex
	committed Settings
	staged    Settings
	editing   bool
	arena     *Arena
	listeners []CommitListener
	closed    bool
}

// NewStore creates a store whose committed and staged settings start as initial
func NewStore(initial Settings, arena *Arena) *Store {
	if arena == nil {
		arena = NewArena()
	}
	return &Store{
		committed: initial.Clone(),
		staged:    initial.Clone(),
		arena:     arena,
	}
}

// Arena returns the image arena owned by the store
func (s *Store) Arena() *Arena {
	return s.arena
}

// OnCommit registers a listener run on every commit
func (s *Store) OnCommit(l CommitListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Committed returns a copy of the committed settings
func (s *Store) Committed() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed.Clone()
}

// Staged returns a copy of the staged settings
func (s *Store) Staged() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staged.Clone()
}

// Editing reports whether an edit is open
func (s *Store) Editing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editing
}

// BeginEdit opens an edit: staged becomes a fresh copy of committed
func (s *Store) BeginEdit() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Settings{}, ErrStoreClosed
	}
	s.staged = s.committed.Clone()
	s.editing = true
	s.sweepLocked()
	return s.staged.Clone(), nil
}

// Update edits the staged settings. An edit is opened when none is.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Settings{}, ErrStoreClosed
	}
	if !s.editing {
		s.staged = s.committed.Clone()
		s.editing = true
	}

	fn(&s.staged)
	if s.staged.MoveCap < 0 {
		s.staged.MoveCap = 0
	}
	s.sweepLocked()
	return s.staged.Clone(), nil
}

// ApplyPatch is Update with a partial settings patch
func (s *Store) ApplyPatch(p Patch) (Settings, error) {
	return s.Update(p.Apply)
}

// AddImage stores an uploaded image in the arena and places its handle in
// the staged slot chosen by kind
func (s *Store) AddImage(kind ImageKind, data []byte, contentType string) (string, Settings, error) {
	if _, err := ParseImageKind(string(kind)); err != nil {
		return "", Settings{}, err
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return "", Settings{}, ErrStoreClosed
	}

	ref, err := s.arena.Acquire(data, contentType)
	if err != nil {
		return "", Settings{}, err
	}

	staged, err := s.Update(func(st *Settings) {
		switch kind {
		case KindLogo:
			st.Logo = ref
		case KindCardBack:
			st.CardBackLogo = ref
		default:
			st.Images = append(st.Images, ref)
		}
	})
	if err != nil {
		s.arena.Release(ref)
		return "", Settings{}, err
	}
	return ref, staged, nil
}

// RemoveImage drops a reference from every staged slot
func (s *Store) RemoveImage(ref string) (Settings, error) {
	found := false
	staged, err := s.Update(func(st *Settings) {
		images := st.Images[:0]
		for _, img := range st.Images {
			if img == ref {
				found = true
				continue
			}
			images = append(images, img)
		}
		st.Images = images

		if st.Logo == ref {
			st.Logo = ""
			found = true
		}
		if st.CardBackLogo == ref {
			st.CardBackLogo = ""
			found = true
		}
	})
	if err != nil {
		return Settings{}, err
	}
	if !found {
		return staged, fmt.Errorf("%w: %s", ErrUnknownImage, ref)
	}
	return staged, nil
}

// Commit copies staged over committed and runs the commit listeners, which
// rebuild the board. Handles referenced by neither copy are released only
// after the listeners ran, so the displayed board never loses an image.
func (s *Store) Commit() (Settings, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Settings{}, ErrStoreClosed
	}
	previous := s.committed
	s.committed = s.staged.Clone()
	committed := s.committed.Clone()
	listeners := s.listeners
	s.mu.Unlock()

	for _, l := range listeners {
		if err := l(committed); err != nil {
			s.mu.Lock()
			s.committed = previous
			s.mu.Unlock()
			return Settings{}, fmt.Errorf("%w: %v", ErrCommitRejected, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = false
	s.sweepLocked()
	return s.committed.Clone(), nil
}

// Discard abandons the open edit
func (s *Store) Discard() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Settings{}, ErrStoreClosed
	}
	s.staged = s.committed.Clone()
	s.editing = false
	s.sweepLocked()
	return s.staged.Clone(), nil
}

// Close releases every image handle
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.listeners = nil
	s.arena.Close()
}

// sweepLocked releases arena handles that neither settings copy references.
// Caller must hold mu.
func (s *Store) sweepLocked() {
	live := make(map[string]bool)
	for _, ref := range s.committed.Refs() {
		live[ref] = true
	}
	for _, ref := range s.staged.Refs() {
		live[ref] = true
	}

	if released := s.arena.Retain(live); len(released) > 0 {
		log.Debug().Strs("refs", released).Msg("released image handles")
	}
}

package settings

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HandlePrefix marks references that point into an Arena
const HandlePrefix = "blob:"

// MaxBlobSize caps a single uploaded image
const MaxBlobSize = 5 << 20

var (
	ErrEmptyBlob    = errors.New("empty image")
	ErrBlobTooLarge = errors.New("image too large")
	ErrNotImage     = errors.New("not an image")
	ErrArenaClosed  = errors.New("image arena is closed")
)

// Blob is an uploaded image held in memory
type Blob struct {
	Ref         string    `json:"ref"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Data        []byte    `json:"-"`
}

// Arena owns transient image handles. Every handle stays valid until it is
// released explicitly, swept by Retain or the arena is closed.
type Arena struct {
	mu     sync.RWMutex
	blobs  map[string]*Blob
	closed bool
}

// NewArena creates an empty arena
func NewArena() *Arena {
	return &Arena{
		blobs: make(map[string]*Blob),
	}
}

// IsHandle reports whether ref points into an arena
func IsHandle(ref string) bool {
	return strings.HasPrefix(ref, HandlePrefix)
}

// DetectImageType resolves the content type of an upload. A declared image/*
// type wins; otherwise the type is sniffed from the data.
func DetectImageType(data []byte, declared string) (string, error) {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if strings.HasPrefix(declared, "image/") {
		return declared, nil
	}

	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected, nil
	}
	return "", fmt.Errorf("%w: detected %s", ErrNotImage, detected)
}

// CheckImage runs the checks Acquire applies to an upload and returns the
// content type it would be stored under
func CheckImage(data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyBlob
	}
	if len(data) > MaxBlobSize {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrBlobTooLarge, len(data), MaxBlobSize)
	}
	return DetectImageType(data, contentType)
}

// Acquire stores an image and returns its handle
func (a *Arena) Acquire(data []byte, contentType string) (string, error) {
	ct, err := CheckImage(data, contentType)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return "", ErrArenaClosed
	}

	ref := HandlePrefix + uuid.NewString()
	a.blobs[ref] = &Blob{
		Ref:         ref,
		ContentType: ct,
		Size:        len(data),
		CreatedAt:   time.Now(),
		Data:        append([]byte(nil), data...),
	}
	return ref, nil
}

// Get returns the blob behind a handle
func (a *Arena) Get(ref string) (*Blob, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	blob, ok := a.blobs[ref]
	return blob, ok
}

// Release frees a handle. It reports whether the handle was live.
func (a *Arena) Release(ref string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.blobs[ref]; !ok {
		return false
	}
	delete(a.blobs, ref)
	return true
}

// Retain releases every handle not present in live and returns the
// released handles
func (a *Arena) Retain(live map[string]bool) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var released []string
	for ref := range a.blobs {
		if !live[ref] {
			delete(a.blobs, ref)
			released = append(released, ref)
		}
	}
	return released
}

// Len returns the number of live handles
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.blobs)
}

// Bytes returns the total size of live blobs
func (a *Arena) Bytes() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := 0
	for _, blob := range a.blobs {
		total += blob.Size
	}
	return total
}

// Close releases every handle. Later acquisitions fail.
func (a *Arena) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	a.blobs = make(map[string]*Blob)
}

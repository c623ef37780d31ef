package engine

import "fmt"

// Options configures how boards are built
type Options struct {
	// Images are the custom pair images, in order. Used when at least
	// TotalPairs distinct entries are present.
	Images []string `json:"images"`
	// Defaults is the built-in fallback image set
	Defaults []string `json:"defaults"`
	// MoveCap limits successful flips per game. 0 means unlimited.
	MoveCap int `json:"move_cap"`
}

// Clone returns a copy that shares no slices with o
func (o Options) Clone() Options {
	clone := o
	clone.Images = append([]string(nil), o.Images...)
	clone.Defaults = append([]string(nil), o.Defaults...)
	return clone
}

// ValidateOptions checks that boards can always be built from the options
func ValidateOptions(opts Options) error {
	if opts.MoveCap < 0 {
		return fmt.Errorf("options validation: move_cap must be >= 0, got %d", opts.MoveCap)
	}

	if n := len(firstDistinct(opts.Defaults, TotalPairs)); n < TotalPairs {
		return fmt.Errorf("options validation: %w: defaults need %d distinct images, got %d",
			ErrNotEnoughImages, TotalPairs, n)
	}

	return nil
}

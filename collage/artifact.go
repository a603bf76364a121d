package collage

import (
	"os"
	"sync"
)

// Artifact is a scoped handle over the encoded collage file. The caller owns
// it and releases it deterministically once the image has been delivered.
type Artifact struct {
	path string

	once sync.Once
	err  error
}

// Path returns the location of the encoded image.
func (a *Artifact) Path() string {
	return a.path
}

// Release deletes the underlying file. Safe to call more than once; later
// calls return the first result.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		a.err = os.Remove(a.path)
	})
	return a.err
}

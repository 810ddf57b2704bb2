//go:build !linux

package mpris

// Adapter is a no-op on non-Linux platforms.
type Adapter struct {
	cmds commandQueue
}

// New returns a no-op adapter on non-Linux platforms.
func New() (*Adapter, error) {
	return &Adapter{cmds: newCommandQueue()}, nil
}

// Commands returns a queue that never receives.
func (a *Adapter) Commands() <-chan Command { return a.cmds }

// Publish is a no-op on non-Linux platforms.
func (a *Adapter) Publish(Snapshot) {}

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error {
	return nil
}

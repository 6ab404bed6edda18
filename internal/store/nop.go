package store

import "context"

// Nop is a backend that never persists. Used by the check command so a dry
// run leaves the real store untouched.
type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (Nop) Load(context.Context) ([]string, error) {
	return nil, nil
}

func (Nop) Save(context.Context, []string) error {
	return nil
}

func (Nop) Close() error {
	return nil
}

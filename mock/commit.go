package mock

import (
	"context"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"
)

// ErrDuplicateStub is returned when CommitAll is given the same stub twice.
var ErrDuplicateStub = errors.New("stub committed twice")

// CommitAll commits the chains of several stubs concurrently and returns the
// first failure. Chains of one stub keep their order; chains of different
// stubs are independent. Nothing is committed if a stub is given twice.
func CommitAll(ctx context.Context, stubs ...*Stub) error {
	seen := mapset.NewThreadUnsafeSet[*Stub]()
	for _, s := range stubs {
		if !seen.Add(s) {
			return fmt.Errorf("%w: %s", ErrDuplicateStub, s.Signature())
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range stubs {
		s := s
		g.Go(func() error {
			return s.Commit(gctx)
		})
	}
	return g.Wait()
}

package srv

import (
	"context"
	"errors"
	"fmt"
)

// cleanupService runs release hooks on shutdown. Start is a no-op.
type cleanupService struct {
	name  string
	hooks []func() error
}

func (c *cleanupService) Start(context.Context) error { return nil }

// Shutdown runs every hook, last registered first, and joins the failures.
func (c *cleanupService) Shutdown(context.Context) error {
	var errs []error
	for i := len(c.hooks) - 1; i >= 0; i-- {
		if c.hooks[i] == nil {
			continue
		}
		if err := c.hooks[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cleanup %s: %w", c.name, err)
	}
	return nil
}

func NewCleanup(name string, hooks ...func() error) Service {
	return &cleanupService{name: name, hooks: hooks}
}

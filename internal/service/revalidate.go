package service

import (
	"context"
	"fmt"
	"log/slog"
)

// Revalidator receives the views that must be re-fetched after a write.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

// RevalidatorFunc adapts a function to Revalidator.
type RevalidatorFunc func(ctx context.Context, paths ...string)

func (f RevalidatorFunc) Revalidate(ctx context.Context, paths ...string) { f(ctx, paths...) }

// LogRevalidator records invalidated views in the log.
type LogRevalidator struct {
	Logger *slog.Logger
}

func (r LogRevalidator) Revalidate(ctx context.Context, paths ...string) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "views invalidated", slog.Any("paths", paths))
}

const listingPath = "/"

func projectPath(id int64) string {
	return fmt.Sprintf("/projects/%d", id)
}

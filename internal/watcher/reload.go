package watcher

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// Reloader swaps a language to its newly published generation.
type Reloader interface {
	Reload(ctx context.Context, lang hymn.Language) error
}

// ReloadOnPublish runs w and reloads r for every debounced publication
// until ctx is cancelled. A failed reload is logged and the previous
// generation keeps serving.
func ReloadOnPublish(ctx context.Context, w *IndexWatcher, r Reloader) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.Start(ctx)
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case batch, ok := <-w.Events():
				if !ok {
					return nil
				}
				for _, ev := range batch {
					reload(ctx, r, ev)
				}
			}
		}
	})

	return g.Wait()
}

func reload(ctx context.Context, r Reloader, ev Event) {
	if ev.Generation == "" {
		slog.Warn("index_pointer_removed", slog.String("language", ev.Language.String()))
		return
	}
	if err := r.Reload(ctx, ev.Language); err != nil {
		attrs := append([]slog.Attr{slog.String("language", ev.Language.String())}, apperrors.LogAttrs(err)...)
		slog.LogAttrs(ctx, slog.LevelError, "index_reload_failed", attrs...)
		return
	}
	slog.Info("index_reloaded",
		slog.String("language", ev.Language.String()),
		slog.String("generation", ev.Generation))
}

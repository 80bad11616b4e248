// Package watcher notices when an ingest publishes a new index generation
// and tells the retrieval engine to reload that language.
//
// Each language directory under the data dir holds a CURRENT pointer that
// ingest replaces with a rename. The watcher uses fsnotify on those
// directories and falls back to polling where fsnotify is unavailable.
// Bursts of events for one language are debounced into a single reload.
//
// Usage:
//
//	w, err := watcher.New(cfg.DataDir, hymn.Languages(), watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	return watcher.ReloadOnPublish(ctx, w, engine)
package watcher

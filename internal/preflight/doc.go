// Package preflight checks that ChoralMind can ingest and answer before
// an operation starts.
//
// The checks cover:
//   - free disk space and write access under the data directory
//   - the open file limit
//   - readable source documents per language
//   - a published index per language
//   - the embedding and completion providers
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // refuse to continue
//	}
package preflight

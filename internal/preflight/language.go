package preflight

import (
	"fmt"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
	"github.com/Aman-CERP/choralmind/internal/loader"
)

// CheckSources checks that lang has readable source documents. Missing
// sources only block ingestion, so the check is a warning.
func (c *Checker) CheckSources(lang hymn.Language) CheckResult {
	src := c.cfg.Source(lang)
	result := CheckResult{
		Name:    lang.String() + "_sources",
		Details: src.Path,
	}

	files, err := loader.Sources(src.Path)
	if err != nil {
		result.Status = StatusWarn
		if ae, ok := errors.As(err); ok {
			result.Message = ae.Message
		} else {
			result.Message = err.Error()
		}
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d source file(s), %s layout", len(files), src.Layout)
	return result
}

// CheckIndex checks that lang has a readable published generation.
// A corrupt pointer or manifest fails; a missing index only warns.
func (c *Checker) CheckIndex(lang hymn.Language) CheckResult {
	result := CheckResult{
		Name:     lang.String() + "_index",
		Required: true,
		Details:  c.cfg.LanguageDir(lang),
	}

	m, err := index.CurrentManifest(c.cfg.LanguageDir(lang), lang)
	switch {
	case errors.HasCode(err, errors.ErrCodeIndexNotFound):
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("not ingested (run 'choralmind ingest --lang %s')", lang)
	case err != nil:
		result.Status = StatusFail
		result.Message = err.Error()
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s: %d hymns, %d chunks (%s)", m.Generation, m.Hymns, m.Chunks, m.Model)
	}
	return result
}

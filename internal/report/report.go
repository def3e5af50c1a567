// Package report turns compilation results into log output, a pass/fail outcome and the
// optional machine-readable summary.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/yacobolo/stylebuild/internal/engine"
	"github.com/yacobolo/stylebuild/internal/logger"
	"github.com/yacobolo/stylebuild/internal/resource"
)

// ErrCompilationFailed is returned when per-file errors were reported and fail-on-error is set.
var ErrCompilationFailed = errors.New("stylesheet compilation encountered errors (see above for details)")

// Result summarises one compile or update run.
type Result struct {
	Operation string
	Pairs     []resource.DirectoryPair
	Errors    []engine.CompilationError
	Updated   []string
	Skipped   bool
	Duration  time.Duration
}

// Failed reports whether any template failed to compile.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// Report logs every compilation error and decides the outcome. All errors are logged before
// anything is returned, even when the run is going to fail.
func Report(log *logger.Logger, errs []engine.CompilationError, failOnError bool) error {
	for _, e := range errs {
		log.Errorf("Compilation of template %s failed: %s",
			logger.RenderStyle(logger.StyleCyan, e.SourceFile, log.UseColors()), e.Message)
	}

	if len(errs) == 0 {
		return nil
	}
	if failOnError {
		return ErrCompilationFailed
	}
	log.Warnf("%s reported, continuing because fail-on-error is disabled", pluralizeCount(len(errs), "compilation error", "compilation errors"))
	return nil
}

// pluralizeCount returns a formatted string with count and singular/plural form
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

package engine

import (
	"sync"

	"github.com/yacobolo/stylebuild/internal/logger"
)

// Sink receives compiler events while a script runs.
type Sink interface {
	CompilationError(message, sourceFile, destFile string)
	UpdatedFile(sourceFile, destFile string)
	FileModified(sourceFile string)
	FileCreated(sourceFile string)
	FileDeleted(sourceFile string)
}

// CompilationError is one per-file failure reported by the compiler.
type CompilationError struct {
	SourceFile string `json:"file"`
	DestFile   string `json:"output,omitempty"`
	Message    string `json:"message"`
}

// Collector is a Sink scoped to a single invocation. It records compilation errors in the
// order they were reported and logs the informational events.
type Collector struct {
	mu      sync.Mutex
	log     *logger.Logger
	live    bool
	errors  []CompilationError
	updated []string
}

// NewCollector creates a collector. A live collector also logs each compilation error as it
// arrives, for long-running modes where no report follows.
func NewCollector(log *logger.Logger, live bool) *Collector {
	return &Collector{log: log, live: live}
}

// CompilationError records a per-file failure.
func (c *Collector) CompilationError(message, sourceFile, destFile string) {
	c.mu.Lock()
	c.errors = append(c.errors, CompilationError{SourceFile: sourceFile, DestFile: destFile, Message: message})
	c.mu.Unlock()

	if c.live {
		c.log.Errorf("Compilation of template %s failed: %s", sourceFile, message)
	}
}

// UpdatedFile records a successfully written output file.
func (c *Collector) UpdatedFile(sourceFile, destFile string) {
	c.mu.Lock()
	c.updated = append(c.updated, destFile)
	c.mu.Unlock()

	c.log.Infof("    >> %s => %s", sourceFile, destFile)
}

// FileModified logs a changed template.
func (c *Collector) FileModified(sourceFile string) {
	c.log.Infof("Change file detected %s", sourceFile)
}

// FileCreated logs a new template.
func (c *Collector) FileCreated(sourceFile string) {
	c.log.Infof("New file detected %s", sourceFile)
}

// FileDeleted logs a removed template.
func (c *Collector) FileDeleted(sourceFile string) {
	c.log.Infof("Delete file detected %s", sourceFile)
}

// Errors returns the recorded errors in report order.
func (c *Collector) Errors() []CompilationError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CompilationError(nil), c.errors...)
}

// Updated returns the output files written so far.
func (c *Collector) Updated() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.updated...)
}

package engine

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yacobolo/stylebuild/internal/resource"
)

// Directive is the final operation a script asks the runtime to perform.
type Directive string

const (
	// DirectiveCompile compiles every template location once.
	DirectiveCompile Directive = "compile"
	// DirectiveWatch compiles once, then recompiles on source changes until cancelled.
	DirectiveWatch Directive = "watch"
)

// Callback names registered on every script.
const (
	EventCompilationError = "on_compilation_error"
	EventUpdatedFile      = "on_updated_stylesheet"
	EventFileModified     = "on_template_modified"
	EventFileCreated      = "on_template_created"
	EventFileDeleted      = "on_template_deleted"
)

// CoreLibrary is the compiler itself. It is always required and always provided by the runtime.
const CoreLibrary = "sass"

// CompassLibrary is the style library required when compass support is enabled.
const CompassLibrary = "compass"

// Location is one template directory and the directory its compiled output goes to.
type Location struct {
	Template string `yaml:"template"`
	CSS      string `yaml:"css"`
}

// Libraries describes the stylesheet libraries a script loads.
type Libraries struct {
	UseCompass bool
	LoadPaths  []string // directories searched for libraries and imports
	Extensions []string // optional extension libraries
}

// Script is the payload handed to a Runtime: libraries, merged options, template locations,
// registered callbacks and the final directive.
type Script struct {
	Requires   []string   `yaml:"requires"`
	Extensions []string   `yaml:"extensions,omitempty"`
	LoadPaths  []string   `yaml:"load_paths,omitempty"`
	Options    Options    `yaml:"options"`
	Locations  []Location `yaml:"add_template_locations,omitempty"`
	Callbacks  []string   `yaml:"callbacks"`
	Directive  Directive  `yaml:"directive"`
}

// BuildScript assembles a script for pairs. The first pair becomes the template_location and
// css_location options of a derived copy of base; the remaining pairs are added as extra
// template locations. base itself is never modified.
func BuildScript(pairs []resource.DirectoryPair, base Options, libs Libraries, directive Directive) *Script {
	opts := base
	var locations []Location
	for i, p := range pairs {
		if i == 0 {
			opts = opts.With(OptTemplateLocation, Quote(p.SourceDir)).With(OptCSSLocation, Quote(p.DestDir))
			continue
		}
		locations = append(locations, Location{Template: p.SourceDir, CSS: p.DestDir})
	}

	requires := []string{CoreLibrary}
	if libs.UseCompass {
		requires = append(requires, CompassLibrary)
	}

	return &Script{
		Requires:   requires,
		Extensions: libs.Extensions,
		LoadPaths:  libs.LoadPaths,
		Options:    opts,
		Locations:  locations,
		Callbacks: []string{
			EventCompilationError,
			EventUpdatedFile,
			EventFileModified,
			EventFileCreated,
			EventFileDeleted,
		},
		Directive: directive,
	}
}

// TemplateLocations returns every location the script compiles, the option-declared one first.
func (s *Script) TemplateLocations() []Location {
	var out []Location
	if s.Options.Has(OptTemplateLocation) {
		out = append(out, Location{
			Template: s.Options.Text(OptTemplateLocation),
			CSS:      s.Options.Text(OptCSSLocation),
		})
	}
	return append(out, s.Locations...)
}

// String renders the script as YAML.
func (s *Script) String() string {
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Sprintf("<unrenderable script: %v>", err)
	}
	return string(out)
}

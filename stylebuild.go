// Package stylebuild compiles trees of Sass stylesheets into parallel trees of CSS.
//
// A configuration lists one or more source mappings. Each mapping names a source root, ANT-style
// directory globs selecting stylesheet directories below it, and a destination root. The
// mappings resolve to directory pairs that are handed to the Dart Sass compiler.
//
// # Compile
//
// Compile every stylesheet directory once:
//
//	cfg := stylebuild.DefaultConfig()
//	cfg.BuildDir = "target"
//	cfg.Resources = []stylebuild.SourceMapping{{
//		SourceRoot:      "src/main/webapp",
//		Includes:        []string{"**/scss"},
//		DestinationRoot: "target/webapp",
//	}}
//	b, err := stylebuild.New(cfg)
//	result, err := b.Compile(ctx)
//
// # Update
//
// Update compiles only when a stylesheet changed since the previous run. Change detection uses
// CRC-32 checksums persisted to <build-dir>/sass_cache/checksums.
//
//	result, err := b.Update(ctx)
//	if result.Skipped {
//		// nothing changed
//	}
//
// # Watch
//
// Watch recompiles on file changes until ctx is cancelled. Each directory runs its own watcher
// and compiler; an optional target selects exactly one directory.
//
//	err := b.Watch(ctx, "skins/blue", 5*time.Second)
//
// # CLI Tool
//
// stylebuild also provides a CLI tool. Install with:
//
//	go install github.com/yacobolo/stylebuild/cmd/stylebuild@latest
//
// See cmd/stylebuild/README.md for CLI documentation.
package stylebuild

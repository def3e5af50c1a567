package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yacobolo/stylebuild/internal/resource"
)

var testPairs = []resource.DirectoryPair{
	{SourceDir: "/src/main/sass", DestDir: "/target/css"},
	{SourceDir: "/src/main/webapp/skins/blue/scss", DestDir: "/target/css/skins/blue", Rel: "skins/blue/scss"},
	{SourceDir: "/src/main/webapp/skins/red/scss", DestDir: "/target/css/skins/red", Rel: "skins/red/scss"},
}

func TestBuildScriptFoldsFirstPairIntoOptions(t *testing.T) {
	base := DefaultOptions()
	script := BuildScript(testPairs, base, Libraries{}, DirectiveCompile)

	assert.Equal(t, "/src/main/sass", script.Options.Text(OptTemplateLocation))
	assert.Equal(t, "/target/css", script.Options.Text(OptCSSLocation))
	assert.False(t, base.Has(OptTemplateLocation), "base options must not change")

	assert.Equal(t, []Location{
		{Template: "/src/main/webapp/skins/blue/scss", CSS: "/target/css/skins/blue"},
		{Template: "/src/main/webapp/skins/red/scss", CSS: "/target/css/skins/red"},
	}, script.Locations)

	locs := script.TemplateLocations()
	require.Len(t, locs, 3)
	assert.Equal(t, Location{Template: "/src/main/sass", CSS: "/target/css"}, locs[0])
}

func TestBuildScriptLibraries(t *testing.T) {
	tests := []struct {
		name string
		libs Libraries
		want []string
	}{
		{name: "core only", libs: Libraries{}, want: []string{CoreLibrary}},
		{name: "compass", libs: Libraries{UseCompass: true}, want: []string{CoreLibrary, CompassLibrary}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := BuildScript(testPairs[:1], DefaultOptions(), tt.libs, DirectiveWatch)
			assert.Equal(t, tt.want, script.Requires)
			assert.Equal(t, DirectiveWatch, script.Directive)
			assert.Len(t, script.Callbacks, 5)
		})
	}
}

func TestScriptRendersYAML(t *testing.T) {
	libs := Libraries{LoadPaths: []string{"/gems"}, Extensions: []string{"bourbon"}}
	script := BuildScript(testPairs[:2], DefaultOptions(), libs, DirectiveCompile)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(script.String()), &decoded))

	assert.Equal(t, "compile", decoded["directive"])
	assert.Equal(t, []any{"sass"}, decoded["requires"])
	assert.Equal(t, []any{"bourbon"}, decoded["extensions"])

	options, ok := decoded["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "'/src/main/sass'", options[OptTemplateLocation])
	assert.Equal(t, "expanded", options[OptStyle])

	locations, ok := decoded["add_template_locations"].([]any)
	require.True(t, ok)
	assert.Len(t, locations, 1)
}

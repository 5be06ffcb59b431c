package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScript(t *testing.T) {
	path := writeFile(t, "script.json", `{"steps": [
		{"action": "mouseover", "marker": 1},
		{"action": "proxy_mouseover", "marker": 2},
		{"action": "document_click"}
	]}`)

	s, err := LoadScript(path)
	require.NoError(t, err)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, Step{Action: ActionMouseOver, Marker: 1}, s.Steps[0])
	assert.Equal(t, Step{Action: ActionProxyOver, Marker: 2}, s.Steps[1])
	assert.Equal(t, ActionDocumentClick, s.Steps[2].Action)
}

func TestLoadScript_UnknownAction(t *testing.T) {
	path := writeFile(t, "script.json", `{"steps": [{"action": "mouseover"}, {"action": "dblclick"}]}`)

	_, err := LoadScript(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnknownAction)
	assert.Contains(t, err.Error(), "step 1")
}

func TestLoadScript_Missing(t *testing.T) {
	_, err := LoadScript(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading script")
}

func TestLoadPoints(t *testing.T) {
	path := writeFile(t, "points.json", `[
		{"lat": 48.8584, "lng": 2.2945, "hoverData": "Tower", "clickData": "<b>Tower</b>"},
		{"location": {"latitude": 51.5, "longitude": -0.12}}
	]`)

	points, err := LoadPoints(path)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "Tower", points[0].HoverContent)
	assert.Equal(t, "<b>Tower</b>", points[0].ClickContent)
	assert.Equal(t, 51.5, points[1].Position().Lat)
	assert.Equal(t, -0.12, points[1].Position().Lng)
}

func TestLoadPoints_Malformed(t *testing.T) {
	_, err := LoadPoints(writeFile(t, "points.json", `{"lat": 1}`))
	assert.Error(t, err)
}

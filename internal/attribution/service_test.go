package attribution

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kashf/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_LocalMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"text_index": 0, "video_title": "Video A", "video_link": "https://youtu.be/a", "search_title": "Video A"}
	]`), 0600))

	cfg := config.AttributionConfig{MappingPaths: []string{path}, GapWarnThreshold: 10}
	svc, err := Load(context.Background(), cfg, false, nil, []string{"(0:05) Hello world"}, nil)
	require.NoError(t, err)
	assert.True(t, svc.Ready())

	a, ok := svc.Resolve("Hello world")
	require.True(t, ok)
	assert.Equal(t, "https://youtu.be/a?t=5", a.Link)

	link, ok := svc.MatchTitle("Video A\n(0:01) ...")
	require.True(t, ok)
	assert.Equal(t, "https://youtu.be/a", link)
}

func TestLoad_TitlesOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0600))
	svc, err := Load(context.Background(), config.AttributionConfig{MappingPaths: []string{path}}, false, nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, svc.Ready())
}

func TestLoad_Missing(t *testing.T) {
	cfg := config.AttributionConfig{MappingPaths: []string{filepath.Join(t.TempDir(), "nope.json")}}
	_, err := Load(context.Background(), cfg, false, nil, nil, nil)
	assert.Error(t, err)
}

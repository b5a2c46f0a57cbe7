package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_dir = "/var/cache/perceval"
data_dir = "/var/lib/perceval"

[stackexchange]
site = "stackoverflow"
tagged = "ocaml"
token = "aaa"
max_questions = 50

[gitblame]
uri = "https://example.com/repo.git"
git_path = "/tmp/wc"
rev = "v1.2.0"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/perceval", cfg.CacheDir)
	assert.Equal(t, "/var/lib/perceval", cfg.DataDir)
	assert.Equal(t, "stackoverflow", cfg.StackExchange.Site)
	assert.Equal(t, "ocaml", cfg.StackExchange.Tagged)
	assert.Equal(t, "aaa", cfg.StackExchange.Token)
	assert.Equal(t, 50, cfg.StackExchange.MaxQuestions)
	assert.Equal(t, "https://example.com/repo.git", cfg.GitBlame.URI)
	assert.Equal(t, "/tmp/wc", cfg.GitBlame.GitPath)
	assert.Equal(t, "v1.2.0", cfg.GitBlame.Rev)
	assert.Empty(t, cfg.GitBlame.Origin)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("cache_dir = [broken"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

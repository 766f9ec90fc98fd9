package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.True(t, c.IsDefault())
	assert.Equal(t, 30*time.Second, c.TimeoutDuration())
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetVerbose())
	assert.False(t, c.GetNoColor())
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	c, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, c.IsDefault())
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "defaultEnvironment": "staging",
  "timeout": 5000,
  "validateSSL": false,
  "headers": {"X-Team": "api"}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hitpad.json"), []byte(content), 0644))

	c, err := FindAndLoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "staging", c.DefaultEnvironment)
	assert.Equal(t, 5*time.Second, c.TimeoutDuration())
	assert.False(t, c.GetValidateSSL())
	assert.True(t, c.GetFollowRedirects(), "unset keys keep their defaults")
	assert.Equal(t, 10, c.MaxRedirects)
	assert.Equal(t, "api", c.Headers["x-team"])
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	content := "database: /tmp/envs.db\nmaxRedirects: 3\nnoColor: true\n"
	path := filepath.Join(dir, "hitpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/envs.db", c.Database)
	assert.Equal(t, 3, c.MaxRedirects)
	assert.True(t, c.GetNoColor())
}

func TestLoadConfig_RCWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hitpadrc")
	require.NoError(t, os.WriteFile(path, []byte(`{"proxy": "http://proxy:8080"}`), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://proxy:8080", c.Proxy)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HITPAD_TIMEOUT", "1500")
	t.Setenv("HITPAD_FOLLOW_REDIRECTS", "false")
	t.Setenv("HITPAD_DEFAULT_ENVIRONMENT", "local")

	c, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 1500, c.Timeout)
	assert.False(t, c.GetFollowRedirects())
	assert.Equal(t, "local", c.DefaultEnvironment)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1"}

	merged := base.Merge(&Config{
		Timeout:     100,
		ValidateSSL: BoolPtr(false),
		Headers:     map[string]string{"B": "2"},
	})

	assert.Equal(t, 100, merged.Timeout)
	assert.False(t, merged.GetValidateSSL())
	assert.True(t, merged.GetFollowRedirects())
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, map[string]string{"A": "1"}, base.Headers, "merge does not touch the receiver")

	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hitpad.json")
	c := DefaultConfig()
	c.DefaultEnvironment = "dev"
	require.NoError(t, c.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", loaded.DefaultEnvironment)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "VALIDATE_SSL", envName("validateSSL"))
	assert.Equal(t, "MAX_REDIRECTS", envName("maxRedirects"))
	assert.Equal(t, "DATABASE", envName("database"))
}

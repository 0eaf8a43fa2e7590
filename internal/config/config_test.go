package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.yaml", `
references: [lib/helpers.go]
namespaces: [net/http]
packs: [jq]
history_db: history.db
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"lib/helpers.go"}, cfg.References)
	assert.Equal(t, []string{"net/http"}, cfg.Namespaces)
	assert.Equal(t, []string{"jq"}, cfg.Packs)
	assert.Equal(t, "history.db", cfg.HistoryDB)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, path, cfg.Source)
}

func TestLoad_YAMLRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.yaml", "package: [jq]\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestLoad_YAMLEmptyDocument(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.yml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Packs)
	assert.NotNil(t, cfg.Packs)
}

func TestLoad_YAMLInvalidLevel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.yaml", "log_level: loud\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown level")
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.cue", `
packs: ["jq"]
namespaces: ["encoding/json"]
log_level: "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"jq"}, cfg.Packs)
	assert.Equal(t, []string{"encoding/json"}, cfg.Namespaces)
	assert.Equal(t, []string{}, cfg.References)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
}

func TestLoad_CUERejectsUnknownFields(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.cue", `pakcs: ["jq"]`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "validating config")
}

func TestLoad_CUERejectsBadLevel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.cue", `log_level: "loud"`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_CUESyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.cue", `packs: [`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "building CUE value")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scripthost.toml", "")

	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	writeFile(t, dir, "scripthost.cue", `packs: ["from-cue"]`)
	writeFile(t, dir, "scripthost.yaml", "packs: [from-yaml]\n")

	cfg, err = Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"from-yaml"}, cfg.Packs, "yaml wins over cue")
}

func TestValidate_EmptyPackName(t *testing.T) {
	cfg := Default()
	cfg.Packs = []string{"jq", " "}
	assert.ErrorContains(t, cfg.Validate(), "packs[1]")
}

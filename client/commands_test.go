package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/chatfiles/limits"
)

func TestParseQuitAliases(t *testing.T) {
	for _, line := range []string{"/q", "/quit", "/exit"} {
		cmd, hint := ParseLine(line)
		assert.Equal(t, CommandEnd, cmd.Kind, line)
		assert.Empty(t, hint)
	}
}

func TestParsePlainTextAndBounds(t *testing.T) {
	cmd, hint := ParseLine("hello room")
	assert.Equal(t, CommandText, cmd.Kind)
	assert.Equal(t, "hello room", cmd.Text)
	assert.Empty(t, hint)

	cmd, hint = ParseLine("")
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.Empty(t, hint)

	cmd, hint = ParseLine(strings.Repeat("a", limits.MaxText+1))
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)
}

func TestParseRename(t *testing.T) {
	cmd, hint := ParseLine("/rename Bob")
	assert.Equal(t, CommandRename, cmd.Kind)
	assert.Equal(t, "Bob", cmd.Name)
	assert.Empty(t, hint)

	cmd, _ = ParseLine("/r Bob")
	assert.Equal(t, CommandRename, cmd.Kind)

	cmd, hint = ParseLine("/rename")
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)

	cmd, hint = ParseLine("/rename " + strings.Repeat("n", limits.MaxName+1))
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)
}

func TestParseConnectDefaults(t *testing.T) {
	cmd, _ := ParseLine("/connect")
	assert.Equal(t, CommandConnect, cmd.Kind)
	assert.Equal(t, "localhost:6969", cmd.Address)

	cmd, _ = ParseLine("/c example.org")
	assert.Equal(t, "example.org:6969", cmd.Address)

	cmd, _ = ParseLine("/c example.org 7000")
	assert.Equal(t, "example.org:7000", cmd.Address)
}

func TestParseUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	cmd, hint := ParseLine("/upload " + path)
	assert.Equal(t, CommandUpload, cmd.Kind)
	assert.Equal(t, path, cmd.Path)
	assert.Equal(t, "data.bin", cmd.Name)
	assert.Empty(t, hint)

	cmd, _ = ParseLine("/u " + path + " renamed.bin")
	assert.Equal(t, "renamed.bin", cmd.Name)

	cmd, hint = ParseLine("/upload " + filepath.Join(dir, "missing.bin"))
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)

	cmd, hint = ParseLine("/upload")
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)
}

func TestParseDownload(t *testing.T) {
	dir := t.TempDir()

	target := filepath.Join(dir, "local.bin")
	cmd, hint := ParseLine("/download remote.bin " + target)
	assert.Equal(t, CommandDownload, cmd.Kind)
	assert.Equal(t, "remote.bin", cmd.Name)
	assert.Equal(t, target, cmd.Path)
	assert.Empty(t, hint)

	// Without a local path the remote name is used as-is.
	cmd, _ = ParseLine("/d remote.bin")
	assert.Equal(t, "remote.bin", cmd.Path)

	existing := filepath.Join(dir, "already.bin")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))
	cmd, hint = ParseLine("/download remote.bin " + existing)
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)

	cmd, hint = ParseLine("/download")
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)
}

func TestParseSlashNoise(t *testing.T) {
	cmd, hint := ParseLine("/")
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)

	cmd, hint = ParseLine("/frobnicate")
	assert.Equal(t, CommandNothing, cmd.Kind)
	assert.NotEmpty(t, hint)
}

package fsh_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/patchkit/internal/fsh"
	"github.com/calvinalkan/patchkit/pkg/fileio"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := fsh.LoadConfig(fsh.LoadConfigInput{WorkDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Backend)
	assert.Equal(t, fileio.ModeReadWrite, cfg.OpenMode())
	assert.Equal(t, int64(-1), cfg.SearchMax())
	assert.Zero(t, cfg.BufferSize)
	assert.Empty(t, cfg.Sources.Global)
	assert.Empty(t, cfg.Sources.Project)
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := filepath.Join(dir, "xdg")

	writeFile(t, filepath.Join(xdg, "fsh", "config.json"), `{
		"backend": "fd",
		"buffer_size": 128,
		"history": "/tmp/global-history",
	}`)
	writeFile(t, filepath.Join(dir, ".fsh.json"), `{
		// project wins over global
		"backend": "memory",
		"max_matches": 3,
	}`)

	cfg, err := fsh.LoadConfig(fsh.LoadConfigInput{
		WorkDir:   dir,
		Overrides: fsh.Config{Mode: "read-only"},
		Env:       map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Backend)
	assert.Equal(t, 128, cfg.BufferSize)
	assert.Equal(t, "/tmp/global-history", cfg.History)
	assert.Equal(t, int64(3), cfg.SearchMax())
	assert.Equal(t, fileio.ModeReadOnly, cfg.OpenMode())
	assert.Equal(t, filepath.Join(xdg, "fsh", "config.json"), cfg.Sources.Global)
	assert.Equal(t, filepath.Join(dir, ".fsh.json"), cfg.Sources.Project)
}

func TestLoadConfig_HomeFallback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "home", ".config", "fsh", "config.json"), `{"mode": "append"}`)

	cfg, err := fsh.LoadConfig(fsh.LoadConfigInput{
		WorkDir: dir,
		Env:     map[string]string{"HOME": filepath.Join(dir, "home")},
	})
	require.NoError(t, err)
	assert.Equal(t, fileio.ModeAppend, cfg.OpenMode())
}

func TestLoadConfig_ExplicitPathReplacesProject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".fsh.json"), `{"backend": "fd"}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"buffer_size": 64}`)

	cfg, err := fsh.LoadConfig(fsh.LoadConfigInput{WorkDir: dir, ConfigPath: "custom.json"})
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Backend)
	assert.Equal(t, 64, cfg.BufferSize)
	assert.Equal(t, filepath.Join(dir, "custom.json"), cfg.Sources.Project)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		project string
		input   fsh.LoadConfigInput
		wantErr error
	}{
		{
			name:    "explicit config missing",
			input:   fsh.LoadConfigInput{ConfigPath: "nope.json"},
			wantErr: fsh.ErrConfigFileNotFound,
		},
		{
			name:    "invalid json",
			project: `{"backend": `,
			wantErr: fsh.ErrConfigInvalid,
		},
		{
			name:    "unknown backend",
			project: `{"backend": "mmap"}`,
			wantErr: fsh.ErrUnknownBackend,
		},
		{
			name:    "unknown mode",
			input:   fsh.LoadConfigInput{Overrides: fsh.Config{Mode: "rw"}},
			wantErr: fsh.ErrUnknownMode,
		},
		{
			name:    "negative buffer size",
			project: `{"buffer_size": -1}`,
			wantErr: fsh.ErrBufferSizeNegative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.project != "" {
				writeFile(t, filepath.Join(dir, ".fsh.json"), tt.project)
			}

			input := tt.input
			input.WorkDir = dir

			_, err := fsh.LoadConfig(input)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFormatConfig(t *testing.T) {
	t.Parallel()

	out, err := fsh.FormatConfig(fsh.DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, `"backend": "auto"`)
	assert.Contains(t, out, `"mode": "read-write"`)
	assert.Contains(t, out, `"max_matches": -1`)
	assert.NotContains(t, out, "Sources")
}

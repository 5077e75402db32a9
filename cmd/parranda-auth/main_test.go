package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parranda-auth/internal/config"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"api", "worker", "all", "migrate", "sweep"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_EnvFileFlag(t *testing.T) {
	envFile = ""

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--env-file=/etc/parranda/auth.env", "--help"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "/etc/parranda/auth.env", envFile)
}

func TestMigrateCommand_RejectsUnknownDirection(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "sideways"})

	assert.Error(t, cmd.Execute())
}

func TestRunModes_RejectArgs(t *testing.T) {
	for _, mode := range []string{"api", "worker", "all", "sweep"} {
		t.Run(mode, func(t *testing.T) {
			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(new(bytes.Buffer))
			cmd.SetArgs([]string{mode, "extra"})

			assert.Error(t, cmd.Execute())
		})
	}
}

func TestRunModes_FailWithoutConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "sweep"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
		json   bool
		debug  bool
	}{
		{"text info", "text", "info", false, false},
		{"json debug", "json", "debug", true, true},
		{"json uppercase", "JSON", "warn", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			logger, err := newLogger(&config.Config{LogFormat: tt.format, LogLevel: tt.level}, buf)
			require.NoError(t, err)

			logger.Debug("debug line")
			logger.Warn("warn line", "user_id", "u-1")

			assert.Equal(t, tt.debug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Contains(t, buf.String(), "warn line")
			assert.Contains(t, buf.String(), "parranda-auth")

			if tt.json {
				first := bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0]
				assert.True(t, json.Valid(first), "expected JSON output, got %s", first)
			}
		})
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := newLogger(&config.Config{LogFormat: "text", LogLevel: "loud"}, new(bytes.Buffer))
	assert.Error(t, err)
}

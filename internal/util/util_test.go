package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erilali/reactionpad/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDecodeFileFormats(t *testing.T) {
	type sample struct {
		Host string `json:"host" yaml:"host"`
		Port int    `json:"port" yaml:"port"`
	}
	cases := []struct {
		name string
		file string
		body string
	}{
		{"json", "c.json", `{"host":"mb2022.local","port":3033}`},
		{"yaml", "c.yaml", "host: mb2022.local\nport: 3033\n"},
		{"yml", "c.yml", "host: mb2022.local\nport: 3033\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s sample
			found, err := DecodeFile(writeFile(t, tc.file, tc.body), &s)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, sample{Host: "mb2022.local", Port: 3033}, s)
		})
	}
}

func TestDecodeFileMissing(t *testing.T) {
	var v map[string]interface{}
	found, err := DecodeFile(filepath.Join(t.TempDir(), "nope.json"), &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDecodeFileMalformed(t *testing.T) {
	var v map[string]interface{}
	found, err := DecodeFile(writeFile(t, "bad.json", "{"), &v)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestLoadLoggerConfig(t *testing.T) {
	cfg, err := LoadLoggerConfig(writeFile(t, "log.json", `{"level":"debug","log_to_json":true}`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.LogToJSON)
	assert.Equal(t, logger.DefaultLogConfig().FilePath, cfg.FilePath)

	cfg, err = LoadLoggerConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, logger.DefaultLogConfig(), cfg)
}

package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    logrus.Level
		wantErr bool
	}{
		{name: "default is warn", level: "", want: logrus.WarnLevel},
		{name: "debug", level: "debug", want: logrus.DebugLevel},
		{name: "info", level: "info", want: logrus.InfoLevel},
		{name: "invalid", level: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Init(Config{Level: tt.level})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, base.GetLevel())
		})
	}
}

func TestFor_TagsComponent(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug"}))
	var buf bytes.Buffer
	SetOutput(&buf)

	For("matcher").Debug("scanning distribution")

	assert.Contains(t, buf.String(), "component=matcher")
	assert.Contains(t, buf.String(), "scanning distribution")
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bcfetch.log")
	require.NoError(t, Init(Config{Level: "info", File: path}))

	For("test").Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

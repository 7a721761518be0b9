package fileio

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestLoadJSON(t *testing.T) {
	tests := []struct {
		name      string
		content   *string
		want      *testRecord
		wantErr   string
		wantParse bool
	}{
		{name: "valid json", content: ptr(`{"name":"test","value":42}`), want: &testRecord{Name: "test", Value: 42}},
		{name: "file not found", wantErr: ReasonNotFound},
		{name: "invalid json", content: ptr(`{invalid json}`), wantErr: ReasonParse, wantParse: true},
		{name: "empty file", content: ptr(``), wantErr: ReasonParse, wantParse: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "record.json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}

			got, err := LoadJSON[testRecord](path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.wantParse, IsParseError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadJSON_NotExist(t *testing.T) {
	_, err := LoadJSON[testRecord](filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "nested", "output.json")
	require.NoError(t, SaveJSON(path, &testRecord{Name: "nested", Value: 456}, 0o600, 0o700))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadJSON[testRecord](path)
	require.NoError(t, err)
	assert.Equal(t, &testRecord{Name: "nested", Value: 456}, loaded)
}

func TestReadLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandbox.log")
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, strings.Repeat("x", i))
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	got, err := ReadLastLines(path, 5)
	require.NoError(t, err)
	assert.Equal(t, lines[25:], got)

	got, err = ReadLastLines(path, 100)
	require.NoError(t, err)
	assert.Len(t, got, 30)

	_, err = ReadLastLines(filepath.Join(t.TempDir(), "missing.log"), 5)
	assert.Error(t, err)
}

func ptr(s string) *string {
	return &s
}

package translation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestNewFileTranslator(t *testing.T) {
	dir := t.TempDir()

	tr, err := NewFileTranslator(dir)
	require.NoError(t, err)
	assert.NotNil(t, tr)

	_, err = NewFileTranslator(filepath.Join(dir, "missing"))
	var cfgErr *ports.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "engine.translation_dir", cfgErr.ConfigKey)

	writeFile(t, dir, "plain.txt", "x")
	_, err = NewFileTranslator(filepath.Join(dir, "plain.txt"))
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestFileTranslator_Translate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "obj.json", `{"uid": "obj", "hard_logic_py": ["result = day_count(plan) == 2", "result = True"]}`)
	writeFile(t, dir, "list.json", `["result = True"]`)
	writeFile(t, dir, "encoded.json", `{"hard_logic_py": "[\"result = False\"]"}`)
	writeFile(t, dir, "empty.json", `{"hard_logic_py": []}`)
	writeFile(t, dir, "broken.json", `{"hard_logic_py": 7}`)

	tr, err := NewFileTranslator(dir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		uid     string
		want    []string
		wantErr error
	}{
		{name: "object", uid: "obj", want: []string{"result = day_count(plan) == 2", "result = True"}},
		{name: "bare list", uid: "list", want: []string{"result = True"}},
		{name: "string encoded list", uid: "encoded", want: []string{"result = False"}},
		{name: "empty list", uid: "empty", want: []string{}},
		{name: "missing file", uid: "nope", wantErr: ports.ErrNoTranslation},
		{name: "path in uid", uid: "../obj", wantErr: ports.ErrNoTranslation},
		{name: "malformed", uid: "broken", wantErr: domain.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.Translate(context.Background(), domain.Query{UID: tt.uid})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileTranslator_CancelledContext(t *testing.T) {
	tr, err := NewFileTranslator(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Translate(ctx, domain.Query{UID: "q1"})
	require.ErrorIs(t, err, context.Canceled)
}

// Package translation provides Translator implementations that look up
// hard-constraint programs produced by an upstream translation step.
package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

var _ ports.Translator = (*FileTranslator)(nil)

// FileTranslator reads <dir>/<uid>.json for each query. The file holds
// either an object with a hard_logic_py field or the program list itself.
type FileTranslator struct {
	dir string
}

// NewFileTranslator returns a translator rooted at dir. The directory must
// exist.
func NewFileTranslator(dir string) (*FileTranslator, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, ports.NewConfigError("engine.translation_dir", err)
	}
	if !info.IsDir() {
		return nil, ports.NewConfigError("engine.translation_dir",
			fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidConfiguration, dir))
	}
	return &FileTranslator{dir: dir}, nil
}

type translationFile struct {
	HardLogicPy domain.Programs `json:"hard_logic_py"`
}

// Translate implements ports.Translator. A query without a translation
// file yields ports.ErrNoTranslation.
func (t *FileTranslator) Translate(ctx context.Context, q domain.Query) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.UID == "" || strings.ContainsAny(q.UID, `/\`) {
		return nil, ports.ErrNoTranslation
	}

	data, err := os.ReadFile(filepath.Join(t.dir, q.UID+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ports.ErrNoTranslation
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read translation for %s: %w", q.UID, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var doc translationFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: translation for %s: %v", domain.ErrMalformedInput, q.UID, err)
		}
		return []string(doc.HardLogicPy), nil
	}

	var programs domain.Programs
	if err := json.Unmarshal(data, &programs); err != nil {
		return nil, fmt.Errorf("translation for %s: %w", q.UID, err)
	}
	return []string(programs), nil
}

// Package uploads stores homework images on local disk and builds the
// references the rest of the system works with: the public /uploads URL and
// the base64 data URL handed to the LLM.
package uploads

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	dir string
}

// Saved describes one stored image.
type Saved struct {
	Name    string
	URL     string
	DataURL string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir failed: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes the image under a timestamped collision-resistant name and
// returns its references. contentType falls back to image/jpeg.
func (s *Store) Save(originalName, contentType string, data []byte) (*Saved, error) {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".jpg"
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	id := uuid.New()
	name := fmt.Sprintf("%s_%x%s", time.Now().Format("20060102_150405"), id[:4], ext)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload failed: %w", err)
	}

	var dataURL strings.Builder
	dataURL.WriteString("data:")
	dataURL.WriteString(contentType)
	dataURL.WriteString(";base64,")
	dataURL.WriteString(base64.StdEncoding.EncodeToString(data))

	return &Saved{
		Name:    name,
		URL:     "/uploads/" + name,
		DataURL: dataURL.String(),
	}, nil
}

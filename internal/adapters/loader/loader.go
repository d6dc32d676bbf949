// Package loader provides knowledge file loading adapters.
package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

// MaxFileSize bounds a single knowledge file.
const MaxFileSize = 4 << 20

var (
	_ ports.DocumentLoader = (*TextLoader)(nil)
	_ ports.DocumentLoader = (*FactsLoader)(nil)
	_ ports.DocumentLoader = (*MultiLoader)(nil)
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, info, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return newDocument(path, normalize(content), info.ModTime()), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// FactsLoader loads YAML fact lists:
//
//	facts:
//	  - text: Runway is cash divided by monthly burn.
//	    topic: runway
//
// Each fact becomes one paragraph of the document.
type FactsLoader struct{}

// NewFactsLoader creates a YAML facts loader.
func NewFactsLoader() *FactsLoader {
	return &FactsLoader{}
}

// FactsFile is the YAML layout read by FactsLoader.
type FactsFile struct {
	Facts []Fact `yaml:"facts"`
}

// Fact is one knowledge entry.
type Fact struct {
	Text  string `yaml:"text"`
	Topic string `yaml:"topic,omitempty"`
}

// ParseFacts decodes a YAML facts document, dropping blank entries.
func ParseFacts(data []byte) ([]Fact, error) {
	var f FactsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing facts: %w", err)
	}
	facts := make([]Fact, 0, len(f.Facts))
	for _, fact := range f.Facts {
		fact.Text = strings.TrimSpace(fact.Text)
		if fact.Text != "" {
			facts = append(facts, fact)
		}
	}
	return facts, nil
}

// Load reads the fact list and joins the facts into paragraphs.
func (l *FactsLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, info, err := readFile(path)
	if err != nil {
		return nil, err
	}
	facts, err := ParseFacts(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	texts := make([]string, len(facts))
	for i, f := range facts {
		texts[i] = f.Text
	}
	return newDocument(path, strings.Join(texts, "\n\n"), info.ModTime()), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *FactsLoader) SupportedExtensions() []string {
	return []string{".yaml", ".yml"}
}

// MultiLoader dispatches to a loader by file extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader creates a loader for text, markdown and YAML fact files.
func NewMultiLoader() *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	for _, l := range []ports.DocumentLoader{NewTextLoader(), NewFactsLoader()} {
		for _, ext := range l.SupportedExtensions() {
			m.loaders[ext] = l
		}
	}
	return m
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	return l.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

func readFile(path string) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return nil, nil, fmt.Errorf("%s exceeds %d bytes", filepath.Base(path), MaxFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return content, info, nil
}

func newDocument(path, content string, modTime time.Time) *entities.Document {
	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   content,
		CreatedAt: modTime,
		UpdatedAt: time.Now(),
	}
}

// normalize strips a UTF-8 BOM and converts CRLF line endings.
func normalize(content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	return strings.ReplaceAll(string(content), "\r\n", "\n")
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

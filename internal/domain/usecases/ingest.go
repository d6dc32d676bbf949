package usecases

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var errNoLoader = errors.New("no document loader configured")

// IngestUseCase chunks knowledge documents into the retrieval index.
type IngestUseCase struct {
	index        ports.RetrievalIndex
	loader       ports.DocumentLoader
	logger       *zap.Logger
	chunkSize    int
	chunkOverlap int
	syncDebounce time.Duration
}

// DefaultSyncDebounce is how long a new file must be quiet before Sync
// indexes it.
const DefaultSyncDebounce = 500 * time.Millisecond

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
// loader may be nil when only in-memory documents are ingested.
func NewIngestUseCase(
	index ports.RetrievalIndex,
	loader ports.DocumentLoader,
	logger *zap.Logger,
	chunkSize, chunkOverlap int,
) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = 500 // characters
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		index:        index,
		loader:       loader,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		syncDebounce: DefaultSyncDebounce,
	}
}

// WithSyncDebounce overrides DefaultSyncDebounce.
func (uc *IngestUseCase) WithSyncDebounce(d time.Duration) *IngestUseCase {
	if d > 0 {
		uc.syncDebounce = d
	}
	return uc
}

// AddTexts indexes pre-split knowledge entries as they are.
func (uc *IngestUseCase) AddTexts(ctx context.Context, docs []entities.DocumentInput) (int, error) {
	n, err := uc.index.Add(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("indexing documents: %w", err)
	}
	return n, nil
}

// Ingest chunks a loaded document and indexes the chunks.
func (uc *IngestUseCase) Ingest(ctx context.Context, doc *entities.Document) (int, error) {
	chunks := chunkText(doc.Content, uc.chunkSize, uc.chunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	inputs := make([]entities.DocumentInput, len(chunks))
	for i, c := range chunks {
		inputs[i] = entities.DocumentInput{
			Text: c,
			Metadata: map[string]any{
				"source":   "file",
				"document": doc.Name,
				"chunk":    i,
			},
		}
	}

	n, err := uc.index.Add(ctx, inputs)
	if err != nil {
		return 0, fmt.Errorf("indexing %s: %w", doc.Name, err)
	}
	uc.logger.Info("document indexed",
		zap.String("document", doc.Name),
		zap.Int("chunks", n))
	return n, nil
}

// IngestFile loads and indexes one file.
func (uc *IngestUseCase) IngestFile(ctx context.Context, path string) (int, error) {
	if uc.loader == nil {
		return 0, errNoLoader
	}
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", path, err)
	}
	return uc.Ingest(ctx, doc)
}

// IngestDirectory indexes every supported file directly under dir.
// Unreadable files are logged and skipped.
func (uc *IngestUseCase) IngestDirectory(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading knowledge dir: %w", err)
	}

	total := 0
	for _, e := range entries {
		if e.IsDir() || !uc.supported(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := uc.IngestFile(ctx, filepath.Join(dir, e.Name()))
		if err != nil {
			uc.logger.Warn("skipping knowledge file",
				zap.String("file", e.Name()),
				zap.Error(err))
			continue
		}
		total += n
	}
	return total, nil
}

// Sync indexes new knowledge files under dir until ctx is done.
//
// A file is indexed once, after it has been quiet for the sync debounce and
// has content. Create and write events both count, so a file created empty
// and filled later is still picked up. The index is append-only: changes to
// an indexed file and removals are only logged. When the watcher closes,
// pending files are indexed before Sync returns.
func (uc *IngestUseCase) Sync(ctx context.Context, watcher ports.FileWatcher, dir string) error {
	defer watcher.Stop()
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	done := make(chan struct{})
	defer close(done)
	ready := make(chan string)
	pending := make(map[string]*time.Timer)
	indexed := make(map[string]bool)

	settle := func(path string) {
		delete(pending, path)
		if indexed[path] {
			return
		}
		n, err := uc.IngestFile(ctx, path)
		switch {
		case err != nil:
			uc.logger.Warn("indexing knowledge file failed",
				zap.String("file", path),
				zap.Error(err))
		case n == 0:
			uc.logger.Debug("knowledge file has no content yet", zap.String("file", path))
		default:
			indexed[path] = true
		}
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			return nil

		case ev, ok := <-events:
			if !ok {
				paths := slices.Sorted(maps.Keys(pending))
				for _, path := range paths {
					pending[path].Stop()
					settle(path)
				}
				return nil
			}
			if !uc.supported(ev.Path) {
				continue
			}
			if ev.Operation == ports.FileDeleted || indexed[ev.Path] {
				uc.logger.Debug("ignoring knowledge file change",
					zap.String("file", ev.Path),
					zap.Stringer("op", ev.Operation))
				continue
			}
			if t, ok := pending[ev.Path]; ok {
				t.Reset(uc.syncDebounce)
				continue
			}
			path := ev.Path
			pending[path] = time.AfterFunc(uc.syncDebounce, func() {
				select {
				case ready <- path:
				case <-done:
				}
			})

		case path := <-ready:
			settle(path)
		}
	}
}

func (uc *IngestUseCase) supported(path string) bool {
	if uc.loader == nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(uc.loader.SupportedExtensions(), ext)
}

// chunkText splits content into overlapping chunks, breaking at word
// boundaries where possible.
func chunkText(content string, size, overlap int) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(content) {
		end := min(start+size, len(content))
		if end < len(content) {
			if lastSpace := strings.LastIndex(content[start:end], " "); lastSpace > 0 {
				end = start + lastSpace
			} else {
				for end > start+1 && !utf8.RuneStart(content[end]) {
					end--
				}
			}
		}

		if c := strings.TrimSpace(content[start:end]); c != "" {
			chunks = append(chunks, c)
		}
		if end >= len(content) {
			break
		}

		next := end - overlap
		for next < end && !utf8.RuneStart(content[next]) {
			next++
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// Package contentstore keeps the main-content markup of fetched pages on disk
// so extraction can run without re-fetching.
package contentstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
	"github.com/mohammad-safakhou/pathfinder/models"
	"github.com/mohammad-safakhou/pathfinder/utils"
)

const (
	headerPrefix  = "Source URL: "
	indexFileName = "index.json"
	maxNameLen    = 50
	urlHashLen    = 8
)

var (
	ErrNoHeader  = errors.New("content file has no source url header")
	ErrNameTaken = errors.New("content file name taken by another url")
)

// Store is a directory of event_*.html files plus an index.json of page
// metadata. Writes are serialized; one Store per directory.
type Store struct {
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l).Named("contentstore") }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates dir if needed. An unusable directory is a configuration error.
func New(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("content store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("content store dir: %w", err)
	}
	s := &Store{dir: dir, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

// FileName is event_<YYYYMMDD_HHMMSS>_<safe url>_<url hash>.html. The safe
// part is truncated, so the hash of the exact URL keeps names of different
// pages crawled in the same second apart.
func FileName(rawURL string, at time.Time) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("event_%s_%s_%s.html", at.Format("20060102_150405"),
		utils.SafeName(rawURL, maxNameLen), hex.EncodeToString(sum[:])[:urlHashLen])
}

// Save writes doc.HTML under a name derived from the URL and the crawl time
// and records the page in the index. The returned document carries FilePath.
func (s *Store) Save(doc models.FetchedDocument) (models.FetchedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.CrawledAt.IsZero() {
		doc.CrawledAt = s.now()
	}
	path := filepath.Join(s.dir, FileName(doc.URL, doc.CrawledAt))
	if other, _, err := ReadFile(path); err == nil && other != doc.URL {
		return doc, fmt.Errorf("%w: %s already holds %s", ErrNameTaken, filepath.Base(path), other)
	}
	body := headerPrefix + doc.URL + "\n\n" + doc.HTML
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return doc, fmt.Errorf("write content: %w", err)
	}
	doc.FilePath = path

	index, err := s.readIndex()
	if err != nil {
		s.logger.Warn("index unreadable, rebuilding", zap.Error(err))
		index = nil
	}
	index = upsert(index, doc)
	if err := s.writeIndex(index); err != nil {
		return doc, err
	}
	return doc, nil
}

// MarkProcessed stamps the index entries of urls with at. A later Save of the
// same URL clears the stamp so a recrawl is extracted again.
func (s *Store) MarkProcessed(urls []string, at time.Time) error {
	if len(urls) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return err
	}
	pos := make(map[string]int, len(index))
	for i, d := range index {
		pos[d.URL] = i
	}
	stamp := at.UTC()
	for _, u := range urls {
		i, ok := pos[u]
		if !ok {
			index = append(index, models.FetchedDocument{URL: u})
			i = len(index) - 1
			pos[u] = i
		}
		index[i].ProcessedAt = &stamp
	}
	return s.writeIndex(index)
}

// Index returns the crawled page metadata in first-crawl order.
func (s *Store) Index() ([]models.FetchedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

// Documents loads every stored page, oldest file first. Metadata comes from
// the index when present; the file header alone is enough otherwise.
func (s *Store) Documents() ([]models.FetchedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.html"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	index, err := s.readIndex()
	if err != nil {
		s.logger.Warn("index unreadable, using file headers only", zap.Error(err))
	}
	byURL := make(map[string]models.FetchedDocument, len(index))
	for _, d := range index {
		byURL[d.URL] = d
	}

	out := make([]models.FetchedDocument, 0, len(paths))
	for _, p := range paths {
		url, html, err := ReadFile(p)
		if err != nil {
			s.logger.Warn("skip content file", zap.String("path", p), zap.Error(err))
			continue
		}
		doc, ok := byURL[url]
		if !ok {
			doc = models.FetchedDocument{URL: url}
		}
		doc.FilePath = p
		doc.HTML = html
		out = append(out, doc)
	}
	return out, nil
}

// ReadFile splits a content file into its source URL and markup.
func ReadFile(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	first, body, _ := strings.Cut(string(data), "\n")
	first = strings.TrimRight(first, "\r")
	if !strings.HasPrefix(first, headerPrefix) {
		return "", "", ErrNoHeader
	}
	url := strings.TrimSpace(strings.TrimPrefix(first, headerPrefix))
	if url == "" {
		return "", "", ErrNoHeader
	}
	return url, strings.TrimLeft(body, "\r\n"), nil
}

func (s *Store) indexPath() string { return filepath.Join(s.dir, indexFileName) }

func (s *Store) readIndex() ([]models.FetchedDocument, error) {
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var docs []models.FetchedDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return docs, nil
}

func (s *Store) writeIndex(docs []models.FetchedDocument) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	if err := helpers.WriteFileAtomic(s.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// upsert keeps one entry per URL at its first position; the newest crawl's
// metadata replaces the old entry, processed stamp included.
func upsert(index []models.FetchedDocument, doc models.FetchedDocument) []models.FetchedDocument {
	doc.HTML = ""
	doc.ProcessedAt = nil
	for i := range index {
		if index[i].URL == doc.URL {
			index[i] = doc
			return index
		}
	}
	return append(index, doc)
}

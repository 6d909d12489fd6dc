package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/ports/driven"
	"github.com/warraq-labs/warraq/internal/logger"
)

// Artifact file names inside each document directory.
const (
	layoutFile      = "layout_elements.json"
	pagesFile       = "page_texts.json"
	translationFile = "translation.json"
)

// Ensure Store implements the interface.
var _ driven.CorpusSource = (*Store)(nil)

// Store reads the corpus from a directory tree. The inventory is
// loaded once on first metadata lookup and held in memory; artifact
// files are read per call, so a rebuild always sees current content.
type Store struct {
	root          string
	inventoryPath string

	loadOnce  sync.Once
	inventory map[string]domain.DocumentMeta
}

// NewStore creates a corpus store over root. inventoryPath may be
// empty; metadata lookups then resolve <root>/inventory.json.
func NewStore(root, inventoryPath string) *Store {
	if inventoryPath == "" {
		inventoryPath = filepath.Join(root, "inventory.json")
	}
	return &Store{
		root:          root,
		inventoryPath: inventoryPath,
	}
}

// Documents lists document directories under the corpus root in
// lexicographic order. Plain files and dot-directories are ignored.
func (s *Store) Documents(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list corpus root %s: %w", s.root, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ids = append(ids, entry.Name())
	}
	return ids, nil
}

// layoutRegion mirrors one region object in layout_elements.json.
type layoutRegion struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// LayoutElements reads the document's layout artifact: a map of page
// number to region list. Pages with non-numeric keys are dropped.
func (s *Store) LayoutElements(ctx context.Context, docID string) ([]domain.LayoutPage, error) {
	var raw map[string][]layoutRegion
	if err := s.readArtifact(docID, layoutFile, &raw); err != nil {
		return nil, err
	}

	pages := make([]domain.LayoutPage, 0, len(raw))
	for key, regions := range raw {
		number, err := strconv.Atoi(key)
		if err != nil {
			logger.Debug("Dropping non-numeric layout page %q in %s", key, docID)
			continue
		}
		elements := make([]domain.LayoutElement, len(regions))
		for i, r := range regions {
			elements[i] = domain.LayoutElement{Label: r.Label, Text: r.Text}
		}
		pages = append(pages, domain.LayoutPage{Number: number, Elements: elements})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	return pages, nil
}

// PageTexts reads the document's flat page-text artifact.
func (s *Store) PageTexts(ctx context.Context, docID string) (map[string]string, error) {
	var texts map[string]string
	if err := s.readArtifact(docID, pagesFile, &texts); err != nil {
		return nil, err
	}
	return texts, nil
}

// TranslatedPageTexts reads the machine-translated page texts. The
// translation pipeline wraps them in an envelope alongside its own
// bookkeeping, so only the page_texts member is read.
func (s *Store) TranslatedPageTexts(ctx context.Context, docID string) (map[string]string, error) {
	var envelope struct {
		PageTexts map[string]string `json:"page_texts"`
	}
	if err := s.readArtifact(docID, translationFile, &envelope); err != nil {
		return nil, err
	}
	return envelope.PageTexts, nil
}

// Metadata resolves the document's inventory record. Lookups tolerate
// the ".pdf" suffix differing between directory names and inventory
// keys.
func (s *Store) Metadata(ctx context.Context, docID string) (domain.DocumentMeta, error) {
	s.loadOnce.Do(s.loadInventory)

	for _, key := range []string{docID, docID + ".pdf", strings.TrimSuffix(docID, ".pdf")} {
		if meta, ok := s.inventory[key]; ok {
			return meta, nil
		}
	}
	return domain.DocumentMeta{}, fmt.Errorf("inventory record for %s: %w", docID, domain.ErrNotFound)
}

// readArtifact decodes one artifact JSON file. Absent and malformed
// files both report domain.ErrArtifactMissing; one broken document
// must not fail a whole corpus build.
func (s *Store) readArtifact(docID, name string, v any) error {
	path := filepath.Join(s.root, docID, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s for %s: %w", name, docID, domain.ErrArtifactMissing)
		}
		logger.Warn("Unreadable artifact %s: %v", path, err)
		return fmt.Errorf("%s for %s: %w", name, docID, domain.ErrArtifactMissing)
	}

	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("Malformed artifact %s: %v", path, err)
		return fmt.Errorf("%s for %s: %w", name, docID, domain.ErrArtifactMissing)
	}
	return nil
}

// loadInventory parses the bibliographic inventory. A missing or
// malformed inventory degrades labels, it never fails a build, so
// every problem here is a warning plus an empty table.
func (s *Store) loadInventory() {
	s.inventory = make(map[string]domain.DocumentMeta)

	data, err := os.ReadFile(s.inventoryPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Unreadable inventory %s: %v", s.inventoryPath, err)
		}
		return
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("Malformed inventory %s: %v", s.inventoryPath, err)
		return
	}

	for _, record := range records {
		key := stringField(record, "key")
		if key == "" {
			continue
		}
		s.inventory[key] = domain.DocumentMeta{
			Title:   stringField(record, "title"),
			Authors: stringField(record, "authors"),
			Year:    stringField(record, "year"),
		}
	}
	logger.Debug("Inventory: %d records from %s", len(s.inventory), s.inventoryPath)
}

// stringField pulls a field that sloppy inventories store as either a
// string or a number.
func stringField(record map[string]any, name string) string {
	switch v := record[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

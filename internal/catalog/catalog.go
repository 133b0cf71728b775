package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/observability"
	"github.com/normscout/normscout-backend/internal/platform/logger"
)

// Catalog loads norm database files from a data directory and caches them
// in memory. Database files are JSON documents of the form
// {"norms": [...]}; each loaded norm is stamped with its source database so
// results can always be traced back to the file they came from.
type Catalog struct {
	log     *logger.Logger
	dataDir string

	mu    sync.Mutex
	cache map[string][]domain.Norm
}

func NewCatalog(log *logger.Logger, dataDir string) *Catalog {
	return &Catalog{
		log:     log,
		dataDir: dataDir,
		cache:   map[string][]domain.Norm{},
	}
}

type dbFile struct {
	Norms []domain.Norm `json:"norms"`
}

// Load returns the norms of the given database files, in file order. A norm
// id that appears in more than one file keeps its first-loaded entry; later
// duplicates are dropped with a warning. A missing file is skipped with a
// warning, a malformed file is an error.
func (c *Catalog) Load(databases []string) ([]domain.Norm, error) {
	seen := map[string]string{}
	var out []domain.Norm
	for _, db := range databases {
		norms, err := c.loadDatabase(db)
		if err != nil {
			return nil, err
		}
		for _, n := range norms {
			if prev, dup := seen[n.ID]; dup {
				c.log.Warn("duplicate norm id, keeping first occurrence",
					"norm", n.ID, "kept", prev, "dropped", n.SourceDatabase)
				continue
			}
			seen[n.ID] = n.SourceDatabase
			out = append(out, n)
		}
	}
	return out, nil
}

// Preload forces every given database file through the loader so malformed
// files fail the process at startup instead of at first analysis.
func (c *Catalog) Preload(databases []string) error {
	for _, db := range databases {
		if _, err := c.loadDatabase(db); err != nil {
			return err
		}
	}
	return nil
}

// NormIDs returns the set of norm ids available in the given databases.
func (c *Catalog) NormIDs(databases []string) (map[string]struct{}, error) {
	norms, err := c.Load(databases)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(norms))
	for _, n := range norms {
		ids[n.ID] = struct{}{}
	}
	return ids, nil
}

func (c *Catalog) loadDatabase(name string) ([]domain.Norm, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if norms, ok := c.cache[name]; ok {
		return norms, nil
	}
	norms, err := c.loadFromDisk(name)
	if err != nil {
		return nil, err
	}
	c.cache[name] = norms
	observability.Current().SetCatalogNorms(name, len(norms))
	return norms, nil
}

func (c *Catalog) loadFromDisk(name string) ([]domain.Norm, error) {
	path := filepath.Join(c.dataDir, filepath.Base(name))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.log.Warn("norm database file not found, skipping", "database", name)
			observability.Current().IncCatalogLoadError()
			return nil, nil
		}
		observability.Current().IncCatalogLoadError()
		return nil, fmt.Errorf("read norm database %s: %w", name, err)
	}
	var doc dbFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		observability.Current().IncCatalogLoadError()
		return nil, fmt.Errorf("parse norm database %s: %w", name, err)
	}
	for i := range doc.Norms {
		doc.Norms[i].SourceDatabase = name
	}
	c.log.Info("loaded norm database", "database", name, "norms", len(doc.Norms))
	return doc.Norms, nil
}

// Invalidate drops one database from the cache, or the whole cache when
// name is empty.
func (c *Catalog) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		c.cache = map[string][]domain.Norm{}
		c.log.Info("invalidated all norm database caches")
		return
	}
	delete(c.cache, name)
	c.log.Info("invalidated norm database cache", "database", name)
}

type Stats struct {
	CachedDatabases int      `json:"cached_databases"`
	TotalNorms      int      `json:"total_norms_cached"`
	Databases       []string `json:"databases"`
}

func (c *Catalog) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{CachedDatabases: len(c.cache)}
	for name, norms := range c.cache {
		s.TotalNorms += len(norms)
		s.Databases = append(s.Databases, name)
	}
	return s
}

// Package file implements the product repository over a YAML catalog file.
// The whole catalog is held in memory and swapped atomically on reload, so
// reads never observe a partially applied file.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/repositories"
)

// reloadSettle is how long the watcher waits after a write event before
// re-reading the file, so editors that write in several chunks are read once.
const reloadSettle = 250 * time.Millisecond

type catalogDocument struct {
	Products []productRecord `yaml:"products"`
}

type productRecord struct {
	ID                string    `yaml:"id"`
	Slug              string    `yaml:"slug"`
	Name              string    `yaml:"name"`
	Description       string    `yaml:"description"`
	Category          ref       `yaml:"category"`
	STEMCategory      string    `yaml:"stemCategory"`
	STEMDiscipline    string    `yaml:"stemDiscipline"`
	AgeGroup          string    `yaml:"ageGroup"`
	ProductType       string    `yaml:"productType"`
	LearningOutcomes  []string  `yaml:"learningOutcomes"`
	SpecialCategories []string  `yaml:"specialCategories"`
	Price             string    `yaml:"price"`
	CompareAtPrice    string    `yaml:"compareAtPrice"`
	Currency          string    `yaml:"currency"`
	ImageURLs         []string  `yaml:"imageUrls"`
	Featured          bool      `yaml:"featured"`
	Rating            float64   `yaml:"rating"`
	CreatedAt         time.Time `yaml:"createdAt"`
	UpdatedAt         time.Time `yaml:"updatedAt"`
}

type ref struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type snapshot struct {
	products []domain.Product
	byID     map[string]int
	bySlug   map[string]int
	loadedAt time.Time
}

// CatalogRepository serves products from a YAML file and reloads it when the
// file changes on disk.
type CatalogRepository struct {
	path   string
	logger *zap.Logger
	clock  func() time.Time

	mu    sync.RWMutex
	snap  *snapshot
	hooks []func()
}

// Option customises repository construction.
type Option func(*CatalogRepository)

// WithLogger attaches a logger for reload events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *CatalogRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock injects a custom clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *CatalogRepository) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewCatalogRepository loads the catalog file and returns a repository over
// it. The initial load must succeed; later reload failures keep the last
// good snapshot.
func NewCatalogRepository(path string, opts ...Option) (*CatalogRepository, error) {
	repo := &CatalogRepository{
		path:   path,
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}

	snap, err := repo.load()
	if err != nil {
		return nil, err
	}
	repo.snap = snap
	return repo, nil
}

var _ repositories.ProductRepository = (*CatalogRepository)(nil)

// ListProducts implements repositories.ProductRepository.
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := r.snapshot()
	out := make([]domain.Product, len(snap.products))
	copy(out, snap.products)
	return out, nil
}

// GetProduct implements repositories.ProductRepository.
func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	snap := r.snapshot()
	idx, ok := snap.byID[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: id %q", repositories.ErrProductNotFound, productID)
	}
	return snap.products[idx], nil
}

// GetProductBySlug implements repositories.ProductRepository.
func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	snap := r.snapshot()
	idx, ok := snap.bySlug[slug]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: slug %q", repositories.ErrProductNotFound, slug)
	}
	return snap.products[idx], nil
}

// OnReload registers a hook invoked after every successful reload.
func (r *CatalogRepository) OnReload(hook func()) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// LoadedAt reports when the current snapshot was read, for readiness probes.
func (r *CatalogRepository) LoadedAt() time.Time {
	return r.snapshot().loadedAt
}

// Reload re-reads the catalog file immediately. On failure the previous
// snapshot stays in place.
func (r *CatalogRepository) Reload() error {
	snap, err := r.load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.snap = snap
	hooks := make([]func(), len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.Unlock()

	r.logger.Info("catalog reloaded",
		zap.String("path", r.path),
		zap.Int("products", len(snap.products)))

	for _, hook := range hooks {
		hook()
	}
	return nil
}

// Watch reloads the catalog whenever the file changes on disk, blocking
// until the context is cancelled. Run it on its own goroutine.
func (r *CatalogRepository) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watch: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors and config
	// tooling often replace the file by rename, which drops a direct
	// file watch.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("catalog watch %s: %w", r.path, err)
	}

	var settle *time.Timer
	var settleC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(reloadSettle)
				settleC = settle.C
			} else {
				if !settle.Stop() {
					select {
					case <-settle.C:
					default:
					}
				}
				settle.Reset(reloadSettle)
			}
		case <-settleC:
			settle = nil
			settleC = nil
			if err := r.Reload(); err != nil {
				r.logger.Warn("catalog reload failed, keeping previous snapshot",
					zap.String("path", r.path),
					zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

func (r *CatalogRepository) snapshot() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

func (r *CatalogRepository) load() (*snapshot, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", repositories.ErrCatalogUnavailable, r.path, err)
	}

	var doc catalogDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", repositories.ErrCatalogUnavailable, r.path, err)
	}

	snap := &snapshot{
		products: make([]domain.Product, 0, len(doc.Products)),
		byID:     make(map[string]int, len(doc.Products)),
		bySlug:   make(map[string]int, len(doc.Products)),
		loadedAt: r.clock(),
	}
	for _, rec := range doc.Products {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: %s: product without id", repositories.ErrCatalogUnavailable, r.path)
		}
		if _, dup := snap.byID[rec.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate product id %q", repositories.ErrCatalogUnavailable, r.path, rec.ID)
		}
		idx := len(snap.products)
		snap.products = append(snap.products, rec.toDomain())
		snap.byID[rec.ID] = idx
		if rec.Slug != "" {
			snap.bySlug[rec.Slug] = idx
		}
	}
	return snap, nil
}

func (rec productRecord) toDomain() domain.Product {
	return domain.Product{
		ID:                rec.ID,
		Slug:              rec.Slug,
		Name:              rec.Name,
		Description:       rec.Description,
		Category:          domain.CategoryRef{Name: rec.Category.Name, Slug: rec.Category.Slug},
		STEMCategory:      rec.STEMCategory,
		STEMDiscipline:    rec.STEMDiscipline,
		AgeGroup:          rec.AgeGroup,
		ProductType:       rec.ProductType,
		LearningOutcomes:  append([]string(nil), rec.LearningOutcomes...),
		SpecialCategories: append([]string(nil), rec.SpecialCategories...),
		Price:             rec.Price,
		CompareAtPrice:    rec.CompareAtPrice,
		Currency:          rec.Currency,
		ImageURLs:         append([]string(nil), rec.ImageURLs...),
		Featured:          rec.Featured,
		Rating:            rec.Rating,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

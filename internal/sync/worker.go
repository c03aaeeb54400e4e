package sync

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/metrics"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
)

// DefaultConcurrency is the number of documents indexed in parallel
const DefaultConcurrency = 5

// Store is what the worker reads documents and index state from
type Store interface {
	storage.DocumentStore
	storage.IndexStateStore
}

// Index is the search index being kept in step with the store
type Index interface {
	IndexDocument(doc *models.Document) error
	Delete(id string) error
	Count() (uint64, error)
}

// Worker reconciles the search index with the document store
type Worker struct {
	store       Store
	index       Index
	concurrency int
}

// NewWorker creates a new sync worker. concurrency <= 0 uses DefaultConcurrency.
func NewWorker(store Store, index Index, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Worker{
		store:       store,
		index:       index,
		concurrency: concurrency,
	}
}

// Stats holds sync statistics
type Stats struct {
	Total    int           `json:"total"`
	New      int           `json:"new"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Removed  int           `json:"removed"`
	Errors   int           `json:"errors"`
	Duration time.Duration `json:"duration"`
}

// ContentHash fingerprints the indexed fields of a document
func ContentHash(doc *models.Document) (string, error) {
	data, err := json.Marshal(struct {
		Title       string
		Content     string
		Description string
		Category    string
		Tags        []string
		OwnerID     string
		IsPublic    bool
	}{doc.Title, doc.Content, doc.Description, doc.Category, doc.Tags, doc.UserID, doc.IsPublic})
	if err != nil {
		return "", fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	return fmt.Sprintf("%x", md5.Sum(data)), nil
}

// Put indexes doc and remembers its hash
func (w *Worker) Put(ctx context.Context, doc *models.Document) error {
	hash, err := ContentHash(doc)
	if err != nil {
		return err
	}
	if err := w.index.IndexDocument(doc); err != nil {
		return err
	}
	if err := w.store.SetIndexedHash(ctx, doc.ID, hash); err != nil {
		return fmt.Errorf("set content hash: %w", err)
	}
	return nil
}

// Remove drops a document from the index and forgets its hash
func (w *Worker) Remove(ctx context.Context, id string) error {
	if err := w.index.Delete(id); err != nil {
		return fmt.Errorf("delete %s from index: %w", id, err)
	}
	if err := w.store.DeleteIndexed(ctx, id); err != nil {
		return fmt.Errorf("forget content hash: %w", err)
	}
	return nil
}

// Sync brings the index in line with the store. Documents whose hash is
// unchanged are skipped unless force is set; indexed documents no longer in
// the store are removed.
func (w *Worker) Sync(ctx context.Context, force bool) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{}
	log := logging.Ctx(ctx)

	log.Info().Bool("force", force).Msg("Starting index sync")

	// 1. Load documents and what the index currently holds
	docs, err := w.store.ListDocuments(ctx, storage.DocumentFilter{})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	indexed, err := w.store.ListIndexed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed: %w", err)
	}
	stats.Total = len(docs)

	// 2. Index each document with concurrency
	docChan := make(chan *models.Document, len(docs))
	present := make(map[string]struct{}, len(docs))
	for i := range docs {
		present[docs[i].ID] = struct{}{}
		docChan <- &docs[i]
	}
	close(docChan)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for range w.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range docChan {
				if ctx.Err() != nil {
					return
				}
				if err := w.syncDocument(ctx, doc, force, stats, &mu); err != nil {
					log.Warn().Err(err).Str("document", doc.ID).Msg("Failed to index document")
					mu.Lock()
					stats.Errors++
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Drop documents that disappeared from the store
	for _, id := range indexed {
		if _, ok := present[id]; ok {
			continue
		}
		if err := w.Remove(ctx, id); err != nil {
			log.Warn().Err(err).Str("document", id).Msg("Failed to remove stale document")
			stats.Errors++
			continue
		}
		stats.Removed++
	}

	stats.Duration = time.Since(startTime)
	metrics.RecordIndexSync(stats.Duration, stats.New, stats.Updated, stats.Skipped, stats.Removed, stats.Errors)
	if count, err := w.index.Count(); err == nil {
		metrics.IndexedDocuments.Set(float64(count))
	}

	log.Info().
		Int("new", stats.New).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("removed", stats.Removed).
		Int("errors", stats.Errors).
		Dur("duration", stats.Duration).
		Msg("Index sync complete")

	return stats, nil
}

// syncDocument indexes a single document if its content changed
func (w *Worker) syncDocument(ctx context.Context, doc *models.Document, force bool, stats *Stats, mu *sync.Mutex) error {
	// 1. Compute content hash
	contentHash, err := ContentHash(doc)
	if err != nil {
		return err
	}

	// 2. Check if content has changed
	existingHash, err := w.store.IndexedHash(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("get content hash: %w", err)
	}

	if existingHash == contentHash && !force {
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return nil
	}

	// 3. Index and record the new hash
	if err := w.index.IndexDocument(doc); err != nil {
		return err
	}
	if err := w.store.SetIndexedHash(ctx, doc.ID, contentHash); err != nil {
		return fmt.Errorf("set content hash: %w", err)
	}

	// 4. Update stats
	mu.Lock()
	if existingHash == "" {
		stats.New++
	} else {
		stats.Updated++
	}
	mu.Unlock()

	logging.Ctx(ctx).Debug().Str("document", doc.ID).Str("title", doc.Title).Msg("Indexed document")
	return nil
}

// Run syncs once immediately and then every interval until ctx is done
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.Sync(ctx, false); err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("Index sync failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const partReadExpiry = time.Minute

// Transfer moves uploaded files into object storage. Files above the
// threshold are split into fixed-size parts uploaded concurrently under a
// temporary prefix, reassembled into one object at the final path, and the
// parts removed whether or not the transfer succeeded. There is no
// resumption: a failed transfer is discarded and re-uploaded from scratch.
type Transfer struct {
	store       ObjectStore
	httpClient  *http.Client
	chunkSize   int64
	threshold   int64
	maxParallel int
}

func NewTransfer(store ObjectStore, chunkSize, threshold int64, maxParallel int) *Transfer {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Transfer{
		store:       store,
		httpClient:  http.DefaultClient,
		chunkSize:   chunkSize,
		threshold:   threshold,
		maxParallel: maxParallel,
	}
}

// Store uploads data to finalPath. progress, when non-nil, receives monotonic
// aggregate percentages in [0, 100].
func (t *Transfer) Store(ctx context.Context, finalPath string, data []byte, contentType string, progress func(int)) error {
	if int64(len(data)) <= t.threshold {
		if err := t.store.Put(ctx, finalPath, data, contentType); err != nil {
			return fmt.Errorf("upload %s: %w", finalPath, err)
		}
		report(progress, newProgressTracker(), 100)
		return nil
	}

	return t.storeChunked(ctx, finalPath, data, contentType, progress)
}

func (t *Transfer) storeChunked(ctx context.Context, finalPath string, data []byte, contentType string, progress func(int)) error {
	total := int64(len(data))
	numParts := int((total + t.chunkSize - 1) / t.chunkSize)
	tmpPrefix := fmt.Sprintf("tmp/chunks/%d", time.Now().UnixNano())

	partPaths := make([]string, numParts)
	for i := range partPaths {
		partPaths[i] = fmt.Sprintf("%s/part-%05d", tmpPrefix, i)
	}

	// Parts are removed on every exit path so a failed transfer leaves no
	// orphaned objects behind.
	defer t.removeParts(ctx, partPaths)

	zerolog.Ctx(ctx).Info().
		Str("final_path", finalPath).
		Int64("file_size", total).
		Int("parts", numParts).
		Msg("starting chunked transfer")

	var uploaded atomic.Int64
	tracker := newProgressTracker()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.maxParallel)
	for i := 0; i < numParts; i++ {
		g.Go(func() error {
			start := int64(i) * t.chunkSize
			end := start + t.chunkSize
			if end > total {
				end = total
			}
			part := data[start:end]

			if err := t.store.Put(gctx, partPaths[i], part, "application/octet-stream"); err != nil {
				return fmt.Errorf("upload part %d: %w", i, err)
			}

			done := uploaded.Add(end - start)
			report(progress, tracker, int(done*100/total))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	assembled, err := t.assemble(ctx, partPaths, total)
	if err != nil {
		return err
	}

	if err := t.store.Put(ctx, finalPath, assembled, contentType); err != nil {
		return fmt.Errorf("upload %s: %w", finalPath, err)
	}

	zerolog.Ctx(ctx).Info().Str("final_path", finalPath).Int("parts", numParts).Msg("chunked transfer complete")
	return nil
}

// assemble fetches every part back in index order through a short-lived read
// URL and concatenates them.
func (t *Transfer) assemble(ctx context.Context, partPaths []string, total int64) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, total))
	for i, path := range partPaths {
		url, err := t.store.PresignedGet(ctx, path, partReadExpiry)
		if err != nil {
			return nil, fmt.Errorf("presign part %d: %w", i, err)
		}
		part, err := FetchURL(ctx, t.httpClient, url)
		if err != nil {
			return nil, fmt.Errorf("fetch part %d: %w", i, err)
		}
		buf.Write(part)
	}
	return buf.Bytes(), nil
}

func (t *Transfer) removeParts(ctx context.Context, partPaths []string) {
	for _, path := range partPaths {
		if err := t.store.Remove(ctx, path); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("part", path).Msg("failed to remove temporary part")
		}
	}
}

// progressTracker keeps reported percentages monotonic even though parts
// finish out of order.
type progressTracker struct {
	mu   sync.Mutex
	last int
}

func newProgressTracker() *progressTracker {
	return &progressTracker{last: -1}
}

func report(progress func(int), tracker *progressTracker, pct int) {
	if progress == nil {
		return
	}
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if pct <= tracker.last {
		return
	}
	tracker.last = pct
	progress(pct)
}

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CopyFn is a backend bulk insert; Repository.CopyFrom satisfies it. It
// returns the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn once per non-empty batch. It returns the running total and the
// first error. On cancellation it returns (total, ctx.Err()).
//
// Every successful flush logs a progress line at debug level; the final
// flush logs at info.
func LoadBatches(
	ctx context.Context,
	table string,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total     int64
		batches   int
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
		log       = slog.With("table", table)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Error("loader: insert failed", "inserted", n, "total", total, "err", err)
			return err
		}

		batches++
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		log.Debug("loader: batch flushed",
			"batch", batches,
			"inserted", n,
			"total", total,
			"rps", int64(rps),
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlush = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				log.Info("loader: done", "batches", batches, "total", total,
					"elapsed", time.Since(start).Truncate(time.Millisecond))
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// LoadRows runs LoadBatches over already-materialized rows. The feeding
// goroutine is stopped before LoadRows returns, also when copyFn fails
// part-way.
func LoadRows(ctx context.Context, table string, columns []string, rows [][]any, batchSize int, copyFn CopyFn) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return LoadBatches(ctx, table, columns, Feed(ctx, rows), batchSize, copyFn)
}

// Feed sends rows into a channel that is closed when rows are exhausted or
// ctx is done. Callers that may stop reading early must cancel ctx; LoadRows
// does that.
func Feed(ctx context.Context, rows [][]any) <-chan []any {
	ch := make(chan []any)
	go func() {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

package backend

import (
	"context"
	"iter"
	"log/slog"
)

// ResultSet is a lazy, finite, forward-only cursor over query results.
// End-of-sequence is signaled by an explicit (nil, nil) from FetchRow,
// never by an error. A result set must be closed once consumption is
// complete; Flatten and Each do this on every exit path.
type ResultSet interface {
	// Keys returns the result's column names in emission order.
	Keys() []string

	// FetchRow returns the next row, or (nil, nil) when the sequence is
	// exhausted.
	FetchRow(ctx context.Context) (*DictRow, error)

	// FetchMany returns up to n next rows; a short or empty slice means
	// the sequence ended.
	FetchMany(ctx context.Context, n int) ([]*DictRow, error)

	// Close releases the cursor.
	Close() error
}

// Flatten drains the remaining sequence into an ordered slice, closing
// the result set on both success and failure.
func Flatten(ctx context.Context, rs ResultSet) (rows []*DictRow, err error) {
	defer func() {
		if cerr := rs.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		row, ferr := rs.FetchRow(ctx)
		if ferr != nil {
			return nil, ferr
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// Each returns an iterator over the remaining rows. The result set is
// closed when the loop completes or breaks early; a fetch error is
// yielded as the final element.
func Each(ctx context.Context, rs ResultSet) iter.Seq2[*DictRow, error] {
	return func(yield func(*DictRow, error) bool) {
		defer func() {
			if cerr := rs.Close(); cerr != nil {
				slog.Warn("result set close failed", "error", cerr)
			}
		}()
		for {
			row, err := rs.FetchRow(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if row == nil {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

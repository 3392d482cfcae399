package backend

import (
	"context"
	"errors"
	"testing"
)

// fakeResultSet serves a fixed list of rows, then the end sentinel.
type fakeResultSet struct {
	rows     []*DictRow
	fetchErr error
	closeErr error

	pos    int
	closes int
}

func (f *fakeResultSet) Keys() []string {
	if len(f.rows) == 0 {
		return nil
	}
	return f.rows[0].Keys()
}

func (f *fakeResultSet) FetchRow(ctx context.Context) (*DictRow, error) {
	if f.fetchErr != nil && f.pos == len(f.rows) {
		return nil, f.fetchErr
	}
	if f.pos >= len(f.rows) {
		return nil, nil
	}
	row := f.rows[f.pos]
	f.pos++
	return row, nil
}

func (f *fakeResultSet) FetchMany(ctx context.Context, n int) ([]*DictRow, error) {
	var out []*DictRow
	for len(out) < n {
		row, err := f.FetchRow(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeResultSet) Close() error {
	f.closes++
	return f.closeErr
}

func mustRow(t *testing.T, keys []string, values []any) *DictRow {
	t.Helper()
	row, err := NewDictRow(keys, values)
	if err != nil {
		t.Fatalf("NewDictRow failed: %v", err)
	}
	return row
}

func TestFlattenDrainsAndCloses(t *testing.T) {
	rs := &fakeResultSet{rows: []*DictRow{
		mustRow(t, []string{"id"}, []any{1}),
		mustRow(t, []string{"id"}, []any{2}),
	}}

	rows, err := Flatten(context.Background(), rs)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}
	if v, _ := rows[1].Get("id"); v != 2 {
		t.Errorf("Expected ordered rows, got %v", v)
	}
	if rs.closes != 1 {
		t.Errorf("Expected exactly one close, got %d", rs.closes)
	}
}

func TestFlattenClosesOnFetchError(t *testing.T) {
	ferr := errors.New("fetch broke")
	rs := &fakeResultSet{
		rows:     []*DictRow{mustRow(t, []string{"id"}, []any{1})},
		fetchErr: ferr,
	}

	if _, err := Flatten(context.Background(), rs); !errors.Is(err, ferr) {
		t.Fatalf("Expected the fetch error back, got %v", err)
	}
	if rs.closes != 1 {
		t.Errorf("Expected close on the failure path, got %d", rs.closes)
	}
}

func TestFlattenSurfacesCloseErrorOnSuccess(t *testing.T) {
	cerr := errors.New("close broke")
	rs := &fakeResultSet{closeErr: cerr}

	if _, err := Flatten(context.Background(), rs); !errors.Is(err, cerr) {
		t.Fatalf("Expected the close error on a clean drain, got %v", err)
	}
}

func TestEachVisitsAllRows(t *testing.T) {
	rs := &fakeResultSet{rows: []*DictRow{
		mustRow(t, []string{"id"}, []any{1}),
		mustRow(t, []string{"id"}, []any{2}),
	}}

	var seen []any
	for row, err := range Each(context.Background(), rs) {
		if err != nil {
			t.Fatalf("Each yielded an error: %v", err)
		}
		v, _ := row.Get("id")
		seen = append(seen, v)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("Expected [1 2], got %v", seen)
	}
	if rs.closes != 1 {
		t.Errorf("Expected exactly one close, got %d", rs.closes)
	}
}

func TestEachClosesOnEarlyBreak(t *testing.T) {
	rs := &fakeResultSet{rows: []*DictRow{
		mustRow(t, []string{"id"}, []any{1}),
		mustRow(t, []string{"id"}, []any{2}),
	}}

	for range Each(context.Background(), rs) {
		break
	}
	if rs.closes != 1 {
		t.Errorf("Expected close when the loop breaks early, got %d", rs.closes)
	}
}

func TestEachYieldsFetchErrorLast(t *testing.T) {
	ferr := errors.New("fetch broke")
	rs := &fakeResultSet{
		rows:     []*DictRow{mustRow(t, []string{"id"}, []any{1})},
		fetchErr: ferr,
	}

	var got error
	var count int
	for row, err := range Each(context.Background(), rs) {
		if err != nil {
			got = err
			continue
		}
		_ = row
		count++
	}
	if count != 1 {
		t.Errorf("Expected one good row before the error, got %d", count)
	}
	if !errors.Is(got, ferr) {
		t.Errorf("Expected the fetch error as the final element, got %v", got)
	}
	if rs.closes != 1 {
		t.Errorf("Expected exactly one close, got %d", rs.closes)
	}
}

func TestFetchManyStopsAtEnd(t *testing.T) {
	rs := &fakeResultSet{rows: []*DictRow{
		mustRow(t, []string{"id"}, []any{1}),
		mustRow(t, []string{"id"}, []any{2}),
	}}

	rows, err := rs.FetchMany(context.Background(), 5)
	if err != nil {
		t.Fatalf("FetchMany failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected a short slice at end of sequence, got %d rows", len(rows))
	}

	rows, err = rs.FetchMany(context.Background(), 5)
	if err != nil {
		t.Fatalf("FetchMany failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected an empty slice after exhaustion, got %d rows", len(rows))
	}
}

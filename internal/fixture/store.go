// Package fixture is a stand-in ledger service for development and demos.
// It speaks the same wire surface the dashboard's gateway client expects,
// against either an in-memory store or a sqlite file.
package fixture

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"platen/internal/ledger"
)

var (
	ErrUnknownSource = errors.New("unknown source")
	ErrUnknownOrder  = errors.New("unknown order")
	ErrNoBatch       = errors.New("no prepared batch")
)

// OrderRow is one stored order. HasPDF marks whether a receipt artifact
// exists for it; orders without one count into missing_count on a bulk run.
type OrderRow struct {
	Source    string
	OrderID   string
	Title     string
	Amount    int64
	OrderedAt string
	Excluded  bool
	HasPDF    bool
}

// Channel is one source's hydration slice.
type Channel struct {
	Source    string
	Prepared  bool
	Completed bool
	Orders    []ledger.Order
}

// Store is the fixture's persistence boundary. Periods are seeded lazily:
// the first touch of an unseen period creates the sample rows for it.
type Store interface {
	// Channels returns every source for the period with its rows and
	// batch flags, sources in alphabetical order.
	Channels(period string) ([]Channel, error)
	// ReplaceExclusions overwrites the exclusion set for the source.
	// Order ids not present in the period fail the whole call.
	ReplaceExclusions(period, source string, orderIDs []string) error
	// PrepareBatch opens a print batch over the currently included
	// orders and reports how many are in and out.
	PrepareBatch(period, source string) (count, excluded int, err error)
	// RunBatch reports the prepared batch size and how many of its
	// orders have no receipt artifact. It needs a prepared batch.
	RunBatch(period, source string) (count, missing int, err error)
	// CompleteBatch marks the prepared batch printed.
	CompleteBatch(period, source string) (count int, err error)
	Close() error
}

type batchRow struct {
	prepared  bool
	completed bool
	count     int
}

// seedRows is the sample ledger every fresh period starts from.
func seedRows(period string) []OrderRow {
	day := func(d int) string { return fmt.Sprintf("%s-%02d", period, d) }
	return []OrderRow{
		{Source: "amazon", OrderID: "A-1", Title: "Thermal paper 80mm x 20 rolls", Amount: 3480, OrderedAt: day(2), HasPDF: true},
		{Source: "amazon", OrderID: "A-2", Title: "Packing tape, clear, 6 pack", Amount: 1280, OrderedAt: day(4), HasPDF: true},
		{Source: "amazon", OrderID: "A-3", Title: "A4 copy paper 2500 sheets", Amount: 2980, OrderedAt: day(9), HasPDF: true},
		{Source: "amazon", OrderID: "A-4", Title: "Label printer ribbon", Amount: 1890, OrderedAt: day(15), HasPDF: false},
		{Source: "amazon", OrderID: "A-5", Title: "Cardboard boxes 60 size x 40", Amount: 4200, OrderedAt: day(21), HasPDF: true},
		{Source: "amazon", OrderID: "A-6", Title: "Bubble wrap roll 60cm x 42m", Amount: 1980, OrderedAt: day(26), HasPDF: true},
		{Source: "rakuten", OrderID: "R-1", Title: "Receipt printer drum unit", Amount: 8900, OrderedAt: day(3), HasPDF: true},
		{Source: "rakuten", OrderID: "R-2", Title: "Cleaning cards, 10 pack", Amount: 980, OrderedAt: day(12), HasPDF: true},
		{Source: "rakuten", OrderID: "R-3", Title: "Shipping label sheets A6", Amount: 1680, OrderedAt: day(18), HasPDF: false},
		{Source: "rakuten", OrderID: "R-4", Title: "Desk mat, anti static", Amount: 2480, OrderedAt: day(24), HasPDF: true},
	}
}

// MemStore keeps everything in process memory. State resets on restart.
type MemStore struct {
	mu      sync.Mutex
	orders  map[string][]OrderRow           // period -> rows
	batches map[string]map[string]*batchRow // period -> source -> batch
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		orders:  make(map[string][]OrderRow),
		batches: make(map[string]map[string]*batchRow),
	}
}

func (s *MemStore) ensureLocked(period string) {
	if _, ok := s.orders[period]; ok {
		return
	}
	s.orders[period] = seedRows(period)
	s.batches[period] = make(map[string]*batchRow)
}

func (s *MemStore) sourceRowsLocked(period, source string) []int {
	var idx []int
	for i, row := range s.orders[period] {
		if row.Source == source {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s *MemStore) Channels(period string) ([]Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(period)

	bySource := make(map[string][]ledger.Order)
	for _, row := range s.orders[period] {
		bySource[row.Source] = append(bySource[row.Source], ledger.Order{
			OrderID:   row.OrderID,
			Title:     row.Title,
			Amount:    row.Amount,
			OrderedAt: row.OrderedAt,
			Excluded:  row.Excluded,
		})
	}

	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	channels := make([]Channel, 0, len(sources))
	for _, source := range sources {
		rows := bySource[source]
		sort.Slice(rows, func(i, j int) bool { return rows[i].OrderID < rows[j].OrderID })
		ch := Channel{Source: source, Orders: rows}
		if batch := s.batches[period][source]; batch != nil {
			ch.Prepared = batch.prepared
			ch.Completed = batch.completed
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func (s *MemStore) ReplaceExclusions(period, source string, orderIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(period)

	idx := s.sourceRowsLocked(period, source)
	if len(idx) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	known := make(map[string]int, len(idx))
	for _, i := range idx {
		known[s.orders[period][i].OrderID] = i
	}
	for _, id := range orderIDs {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %s for source %s", ErrUnknownOrder, id, source)
		}
	}

	for _, i := range idx {
		s.orders[period][i].Excluded = false
	}
	for _, id := range orderIDs {
		s.orders[period][known[id]].Excluded = true
	}
	return nil
}

func (s *MemStore) PrepareBatch(period, source string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(period)

	idx := s.sourceRowsLocked(period, source)
	if len(idx) == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	count, excluded := 0, 0
	for _, i := range idx {
		if s.orders[period][i].Excluded {
			excluded++
		} else {
			count++
		}
	}
	s.batches[period][source] = &batchRow{prepared: true, count: count}
	return count, excluded, nil
}

func (s *MemStore) RunBatch(period, source string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(period)

	batch := s.batches[period][source]
	if batch == nil || !batch.prepared {
		return 0, 0, fmt.Errorf("%w for source %s", ErrNoBatch, source)
	}

	missing := 0
	for _, i := range s.sourceRowsLocked(period, source) {
		row := s.orders[period][i]
		if !row.Excluded && !row.HasPDF {
			missing++
		}
	}
	return batch.count, missing, nil
}

func (s *MemStore) CompleteBatch(period, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(period)

	batch := s.batches[period][source]
	if batch == nil || !batch.prepared {
		return 0, fmt.Errorf("%w for source %s", ErrNoBatch, source)
	}
	batch.completed = true
	return batch.count, nil
}

func (s *MemStore) Close() error { return nil }

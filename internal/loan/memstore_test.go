package loan

import (
	"context"
	"maps"
	"sort"
	"sync"

	"libraryapi/internal/platform/date"
)

// memRepo is an in-memory Repository. Transactions run one at a time on a
// copy of the data that is kept only if the callback succeeds.
type memRepo struct {
	mu        sync.Mutex
	books     map[int64]Book
	customers map[int64]string
	loans     map[int64]Loan
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		books:     map[int64]Book{},
		customers: map[int64]string{},
		loans:     map[int64]Loan{},
	}
}

func (r *memRepo) addBook(id int64, title string) {
	r.books[id] = Book{ID: id, Title: title, Available: true}
}

func (r *memRepo) addCustomer(id int64, name string) {
	r.customers[id] = name
}

func (r *memRepo) available(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.books[id].Available
}

func (r *memRepo) loan(id int64) (Loan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	return l, ok
}

// inconsistentBooks returns the books whose flag disagrees with their loans.
func (r *memRepo) inconsistentBooks() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	open := map[int64]int{}
	for _, l := range r.loans {
		if l.IsOpen() {
			open[l.BookID]++
		}
	}
	var bad []int64
	for id, b := range r.books {
		if open[id] > 1 || b.Available != (open[id] == 0) {
			bad = append(bad, id)
		}
	}
	return bad
}

func (r *memRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := &memStore{
		books:     maps.Clone(r.books),
		customers: r.customers,
		loans:     maps.Clone(r.loans),
		nextID:    r.nextID,
	}
	if err := fn(ctx, st); err != nil {
		return err
	}
	r.books, r.loans, r.nextID = st.books, st.loans, st.nextID
	return nil
}

func (r *memRepo) List(ctx context.Context, q Query) ([]Record, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Record
	for _, l := range r.loans {
		if q.BookID > 0 && l.BookID != q.BookID {
			continue
		}
		if q.CustomerID > 0 && l.CustomerID != q.CustomerID {
			continue
		}
		if q.Status == StatusOpen && !l.IsOpen() || q.Status == StatusReturned && l.IsOpen() {
			continue
		}
		out = append(out, r.record(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memRepo) GetByID(ctx context.Context, id int64) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.loans[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r.record(l), nil
}

func (r *memRepo) record(l Loan) Record {
	return Record{
		ID:           l.ID,
		BookID:       l.BookID,
		BookTitle:    r.books[l.BookID].Title,
		CustomerID:   l.CustomerID,
		CustomerName: r.customers[l.CustomerID],
		DateBorrowed: date.Format(l.BorrowedDate),
		DateReturned: date.FormatOptional(l.ReturnedDate),
	}
}

type memStore struct {
	books     map[int64]Book
	customers map[int64]string
	loans     map[int64]Loan
	nextID    int64
}

func (s *memStore) GetBook(ctx context.Context, id int64) (Book, error) {
	b, ok := s.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return b, nil
}

func (s *memStore) SetBookAvailability(ctx context.Context, id int64, available bool) error {
	b, ok := s.books[id]
	if !ok {
		return ErrBookNotFound
	}
	b.Available = available
	s.books[id] = b
	return nil
}

func (s *memStore) GetLoan(ctx context.Context, id int64) (Loan, error) {
	l, ok := s.loans[id]
	if !ok {
		return Loan{}, ErrNotFound
	}
	return l, nil
}

func (s *memStore) checkRefs(l Loan) error {
	if _, ok := s.books[l.BookID]; !ok {
		return ErrBookNotFound
	}
	if _, ok := s.customers[l.CustomerID]; !ok {
		return ErrCustomerNotFound
	}
	return nil
}

func (s *memStore) InsertLoan(ctx context.Context, l Loan) (int64, error) {
	if err := s.checkRefs(l); err != nil {
		return 0, err
	}
	s.nextID++
	l.ID = s.nextID
	s.loans[l.ID] = l
	return l.ID, nil
}

func (s *memStore) UpdateLoan(ctx context.Context, l Loan) error {
	if _, ok := s.loans[l.ID]; !ok {
		return ErrNotFound
	}
	if err := s.checkRefs(l); err != nil {
		return err
	}
	s.loans[l.ID] = l
	return nil
}

func (s *memStore) DeleteLoan(ctx context.Context, id int64) error {
	if _, ok := s.loans[id]; !ok {
		return ErrNotFound
	}
	delete(s.loans, id)
	return nil
}

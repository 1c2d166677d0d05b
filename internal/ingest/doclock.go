package ingest

import "sync"

// docLocks serializes ingestion per document id. Two concurrent uploads into
// the same document would otherwise both read the same next page number
// before either inserts; holding the document's lock across the whole batch
// keeps page numbering contiguous. Uploads into different documents proceed
// concurrently.
type docLocks struct {
	mu    sync.Mutex
	locks map[int64]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

func newDocLocks() *docLocks {
	return &docLocks{locks: make(map[int64]*docLock)}
}

// Lock acquires the lock for documentID and returns its release function.
func (d *docLocks) Lock(documentID int64) (unlock func()) {
	d.mu.Lock()
	l, ok := d.locks[documentID]
	if !ok {
		l = &docLock{}
		d.locks[documentID] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, documentID)
		}
		d.mu.Unlock()
	}
}

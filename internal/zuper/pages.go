package zuper

import "context"

// PageIterator walks the paginated jobs listing from page 1 until the
// reported last page. It is not resumable across runs: a failed run is
// restarted from page 1, which is acceptable because the downstream upsert
// is idempotent.
//
// A failed Next still advances the cursor, so the caller may keep iterating
// to skip a bad page once pagination metadata is known.
type PageIterator struct {
	client     Client
	filter     JobFilter
	page       int
	totalPages int
	done       bool
}

// NewPageIterator returns an iterator positioned before the first page.
func NewPageIterator(c Client, filter JobFilter) *PageIterator {
	return &PageIterator{client: c, filter: filter, page: 1}
}

// Next fetches the next page. It returns (nil, nil) once the listing is
// exhausted. An empty data page also terminates the sequence.
func (it *PageIterator) Next(ctx context.Context) (*JobPage, error) {
	if it.done {
		return nil, nil
	}
	if it.totalPages > 0 && it.page > it.totalPages {
		it.done = true
		return nil, nil
	}

	page := it.page
	it.page++

	jp, err := it.client.FetchJobPage(ctx, it.filter, page)
	if err != nil {
		return nil, err
	}

	it.totalPages = jp.TotalPages
	if len(jp.Jobs) == 0 || page >= jp.TotalPages {
		it.done = true
	}
	return jp, nil
}

// LastPage returns the 1-indexed page number of the most recent Next call.
func (it *PageIterator) LastPage() int { return it.page - 1 }

// TotalKnown reports whether pagination metadata has been learned yet.
// Until at least one page succeeds the iterator cannot bound the sequence,
// so a failure with TotalKnown false leaves the caller nothing to skip to.
func (it *PageIterator) TotalKnown() bool { return it.totalPages > 0 }

package panel

import "github.com/pulseboard/pulseboard/internal/models"

// page sizes per feed; trends pages one topic at a time
const (
	newsPageSize   = 5
	redditPageSize = 5
	trendsPageSize = 1
)

// PageSize returns the pagination size for kind (0 = the feed does not page)
func PageSize(kind models.FeedKind) int {
	switch kind {
	case models.KindNews:
		return newsPageSize
	case models.KindReddit:
		return redditPageSize
	case models.KindTrends:
		return trendsPageSize
	}
	return 0
}

// Page is one resolved pagination window over a feed's items
type Page struct {
	Number  int
	Count   int
	HasPrev bool
	HasNext bool

	// half-open item range [Start, End)
	Start int
	End   int
}

// Paginate clamps the requested page into [1, pageCount] and resolves the
// item window. An empty feed yields a single empty page.
func Paginate(total, requested, size int) Page {
	if size <= 0 {
		size = 1
	}

	count := (total + size - 1) / size
	if count < 1 {
		count = 1
	}

	number := requested
	if number < 1 {
		number = 1
	}
	if number > count {
		number = count
	}

	start := (number - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}

	return Page{
		Number:  number,
		Count:   count,
		HasPrev: number > 1,
		HasNext: number < count,
		Start:   start,
		End:     end,
	}
}

package panel

import (
	"testing"

	"github.com/pulseboard/pulseboard/internal/models"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		requested int
		size      int
		want      Page
	}{
		{
			name: "twelve items at size five pages to three",
			total: 12, requested: 1, size: 5,
			want: Page{Number: 1, Count: 3, HasPrev: false, HasNext: true, Start: 0, End: 5},
		},
		{
			name: "last page is short",
			total: 12, requested: 3, size: 5,
			want: Page{Number: 3, Count: 3, HasPrev: true, HasNext: false, Start: 10, End: 12},
		},
		{
			name: "middle page offers both directions",
			total: 12, requested: 2, size: 5,
			want: Page{Number: 2, Count: 3, HasPrev: true, HasNext: true, Start: 5, End: 10},
		},
		{
			name: "overshoot clamps to last page",
			total: 12, requested: 9, size: 5,
			want: Page{Number: 3, Count: 3, HasPrev: true, HasNext: false, Start: 10, End: 12},
		},
		{
			name: "undershoot clamps to first page",
			total: 12, requested: 0, size: 5,
			want: Page{Number: 1, Count: 3, HasPrev: false, HasNext: true, Start: 0, End: 5},
		},
		{
			name: "empty feed is a single empty page",
			total: 0, requested: 1, size: 5,
			want: Page{Number: 1, Count: 1, HasPrev: false, HasNext: false, Start: 0, End: 0},
		},
		{
			name: "topic-granularity paging",
			total: 4, requested: 2, size: 1,
			want: Page{Number: 2, Count: 4, HasPrev: true, HasNext: true, Start: 1, End: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Paginate(tt.total, tt.requested, tt.size); got != tt.want {
				t.Errorf("Paginate(%d, %d, %d) = %+v, want %+v",
					tt.total, tt.requested, tt.size, got, tt.want)
			}
		})
	}
}

func TestPageSize(t *testing.T) {
	tests := []struct {
		kind models.FeedKind
		want int
	}{
		{models.KindNews, 5},
		{models.KindReddit, 5},
		{models.KindTrends, 1},
		{models.KindFinance, 0},
	}

	for _, tt := range tests {
		if got := PageSize(tt.kind); got != tt.want {
			t.Errorf("PageSize(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

package jsonapi

import (
	"net/url"
	"strings"
	"testing"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		name              string
		total, page, size int
		wantPages         int
		wantPrev, wantNxt bool
	}{
		{"empty", 0, 1, 12, 1, false, false},
		{"single page", 5, 1, 12, 1, false, false},
		{"first of three", 25, 1, 10, 3, false, true},
		{"middle", 25, 2, 10, 3, true, true},
		{"last", 25, 3, 10, 3, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.total, tt.page, tt.size, "/api/items")
			if got := p.TotalPages(); got != tt.wantPages {
				t.Errorf("TotalPages() = %d, want %d", got, tt.wantPages)
			}
			links := p.Links()
			if (links.Prev != "") != tt.wantPrev {
				t.Errorf("Prev = %q", links.Prev)
			}
			if (links.Next != "") != tt.wantNxt {
				t.Errorf("Next = %q", links.Next)
			}
			if !strings.Contains(links.First, "page=1") {
				t.Errorf("First = %q", links.First)
			}
		})
	}
}

func TestPagination_NoBaseURL(t *testing.T) {
	if NewPagination(10, 1, 5, "").Links() != nil {
		t.Error("Links() should be nil without a base URL")
	}
}

func TestParsePaginationParams(t *testing.T) {
	tests := []struct {
		query   string
		page    int
		size    int
		wantBad string
	}{
		{"", 0, 0, ""},
		{"page=2&pageSize=20", 2, 20, ""},
		{"page%5Bnumber%5D=3&page%5Bsize%5D=5", 3, 5, ""},
		{"page=x", 0, 0, "page"},
		{"pageSize=big", 0, 0, "pageSize"},
		{"page=0&pageSize=500", 0, 500, ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			page, size, bad := ParsePaginationParams(q)
			if page != tt.page || size != tt.size || bad != tt.wantBad {
				t.Errorf("got (%d, %d, %q), want (%d, %d, %q)", page, size, bad, tt.page, tt.size, tt.wantBad)
			}
		})
	}
}

package paging

import "github.com/openshift-hyperfleet/hub-clusters/internal/cluster"

// Source is the input of Paginate. When Paged is set, Items is already the
// requested page and Total is the upstream total.
type Source struct {
	Items []cluster.Cluster
	Paged bool
	Total int
}

// Request is a 1-based page request
type Request struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Page is the slice to display and the total count of the list it was cut from
type Page struct {
	Items      []cluster.Cluster `json:"items"`
	TotalCount int               `json:"total_count"`
}

// Paginate returns the page described by req. In local mode items are sorted
// by s and sliced with start=(page-1)*size and end=start+size; out of range
// pages are empty. In passthrough mode items are returned untouched.
func Paginate(src Source, s Sort, req Request) Page {
	if src.Paged {
		items := src.Items
		if items == nil {
			items = []cluster.Cluster{}
		}
		return Page{Items: items, TotalCount: src.Total}
	}

	total := len(src.Items)
	if req.PageSize <= 0 || req.Page <= 0 {
		return Page{Items: []cluster.Cluster{}, TotalCount: total}
	}

	start := (req.Page - 1) * req.PageSize
	if start >= total {
		return Page{Items: []cluster.Cluster{}, TotalCount: total}
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}

	sorted := SortItems(src.Items, s)
	return Page{Items: sorted[start:end:end], TotalCount: total}
}

// PageCount returns the number of pages needed for total items
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Bounds returns the 1-based positions of the first and last item shown on
// page. Both are 0 when the page is empty.
func Bounds(total, page, pageSize int) (itemsStart, itemsEnd int) {
	if total <= 0 || page <= 0 || pageSize <= 0 {
		return 0, 0
	}
	start := (page-1)*pageSize + 1
	if start > total {
		return 0, 0
	}
	end := page * pageSize
	if end > total {
		end = total
	}
	return start, end
}

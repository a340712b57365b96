package backupapi

import "fmt"

// PageSizes are the job page sizes offered by the console, smallest first.
var PageSizes = []int{50, 100, 200, 500, 1000}

// JobPage addresses one zero-based page of a backup's job list.
type JobPage struct {
	Page int
	Size int
}

// Normalize raises sizes below the smallest offered page size and clamps
// negative pages to the first page.
func (p JobPage) Normalize() JobPage {
	if p.Size < PageSizes[0] {
		p.Size = PageSizes[0]
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

func (p JobPage) TotalPages(total int) int {
	p = p.Normalize()
	if total <= 0 {
		return 0
	}
	return (total + p.Size - 1) / p.Size
}

func (p JobPage) HasPrev() bool {
	return p.Normalize().Page >= 1
}

func (p JobPage) HasNext(total int) bool {
	p = p.Normalize()
	return p.Page < p.TotalPages(total)-1
}

func (p JobPage) Prev() JobPage {
	p = p.Normalize()
	if p.Page > 0 {
		p.Page--
	}
	return p
}

func (p JobPage) Next() JobPage {
	p = p.Normalize()
	p.Page++
	return p
}

// Label renders the position as shown under the job table, e.g. "2 of 5".
func (p JobPage) Label(total int) string {
	p = p.Normalize()
	return fmt.Sprintf("%d of %d", p.Page+1, p.TotalPages(total))
}

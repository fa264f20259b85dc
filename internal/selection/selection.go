package selection

import (
	"sort"
	"strconv"
	"strings"

	"github.com/local/pdfsplit/internal/apperr"
)

// DefaultStart is the first page split when no selection is given.
const DefaultStart = 3

// Spec describes which pages to split. List, when non-blank, takes
// precedence and Start/End are ignored.
type Spec struct {
	Start int    // 1-based first page of the range form
	End   int    // 1-based last page; 0 means through the last page
	List  string // e.g. "1,3-5,7"
}

// Selection is an ordered set of distinct 1-based page numbers.
type Selection struct {
	pages []int
	set   map[int]struct{}
}

// Resolve turns spec into a concrete Selection for a document of total pages.
func Resolve(total int, spec Spec) (Selection, error) {
	if total <= 0 {
		return Selection{}, apperr.New(apperr.InvalidSelection, "", "document has no pages")
	}
	if strings.TrimSpace(spec.List) != "" {
		pages, err := ParseList(spec.List, total)
		if err != nil {
			return Selection{}, err
		}
		return New(pages...), nil
	}
	return resolveRange(total, spec.Start, spec.End)
}

func resolveRange(total, start, end int) (Selection, error) {
	if start > total {
		return Selection{}, apperr.New(apperr.InvalidSelection, strconv.Itoa(start),
			"start page beyond page count %d", total)
	}
	// [start, end] is intersected with [1, total]; end 0 means the last page.
	if start < 1 {
		start = 1
	}
	if end == 0 || end > total {
		end = total
	}
	if end < start {
		return New(), nil
	}

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return New(pages...), nil
}

// ParseList parses a comma-separated list of page numbers and inclusive
// "lo-hi" ranges, checking every value against [1, total].
func ParseList(list string, total int) ([]int, error) {
	var out []int
	for _, raw := range strings.Split(list, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			return nil, apperr.New(apperr.InvalidSelection, list, "empty page token")
		}

		lo, hi, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, apperr.New(apperr.InvalidSelection, tok, "range start after range end")
		}
		if lo < 1 || hi > total {
			return nil, apperr.New(apperr.InvalidSelection, tok, "page out of range 1-%d", total)
		}
		for p := lo; p <= hi; p++ {
			out = append(out, p)
		}
	}
	return out, nil
}

func parseToken(tok string) (int, int, error) {
	loStr, hiStr, isRange := strings.Cut(tok, "-")
	if !isRange {
		n, err := parsePage(tok)
		if err != nil {
			return 0, 0, err
		}
		return n, n, nil
	}
	lo, err := parsePage(strings.TrimSpace(loStr))
	if err != nil {
		return 0, 0, apperr.New(apperr.InvalidSelection, tok, "malformed page range")
	}
	hi, err := parsePage(strings.TrimSpace(hiStr))
	if err != nil {
		return 0, 0, apperr.New(apperr.InvalidSelection, tok, "malformed page range")
	}
	return lo, hi, nil
}

// parsePage accepts only unsigned decimal integers.
func parsePage(s string) (int, error) {
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, apperr.New(apperr.InvalidSelection, s, "malformed page number")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.New(apperr.InvalidSelection, s, "malformed page number")
	}
	return n, nil
}

// New builds a Selection from pages, dropping duplicates and sorting.
func New(pages ...int) Selection {
	set := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		set[p] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return Selection{pages: out, set: set}
}

// Contains reports whether page p is selected.
func (s Selection) Contains(p int) bool {
	_, ok := s.set[p]
	return ok
}

// Pages returns the selected pages in ascending order.
func (s Selection) Pages() []int {
	return append([]int(nil), s.pages...)
}

func (s Selection) Len() int { return len(s.pages) }

// String renders the selection compactly, e.g. "1,3-5,7".
func (s Selection) String() string {
	var b strings.Builder
	for i := 0; i < len(s.pages); {
		j := i
		for j+1 < len(s.pages) && s.pages[j+1] == s.pages[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(s.pages[i]))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(s.pages[j]))
		}
		i = j + 1
	}
	return b.String()
}

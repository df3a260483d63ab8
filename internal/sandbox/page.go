package sandbox

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"gridedit/internal/model"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// pageQuery is the grid view's query string: sort, order, page, per_page and
// filter_<column>.
type pageQuery struct {
	sort    string
	order   string
	page    int
	perPage int
	filters map[string]string
}

func parsePageQuery(def TableDef, q url.Values) pageQuery {
	pq := pageQuery{
		order:   strings.ToLower(q.Get("order")),
		page:    atoiOr(q.Get("page"), 1),
		perPage: atoiOr(q.Get("per_page"), defaultPerPage),
		filters: map[string]string{},
	}
	if pq.order != "asc" && pq.order != "desc" {
		pq.order = "asc"
	}
	if pq.page < 1 {
		pq.page = 1
	}
	if pq.perPage < 1 {
		pq.perPage = defaultPerPage
	}
	if pq.perPage > maxPerPage {
		pq.perPage = maxPerPage
	}
	if _, ok := def.column(q.Get("sort")); ok {
		pq.sort = q.Get("sort")
	} else if len(def.PKColumns) > 0 {
		pq.sort = def.PKColumns[0]
	} else {
		pq.sort = def.Columns[0].Name
	}
	for _, c := range def.Columns {
		if v := strings.TrimSpace(q.Get("filter_" + c.Name)); v != "" {
			pq.filters[c.Name] = v
		}
	}
	return pq
}

func atoiOr(s string, d int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return d
	}
	return n
}

func matchesFilters(r storedRow, filters map[string]string) bool {
	for c, f := range filters {
		v := r.Values[c]
		if v == nil || !strings.Contains(strings.ToLower(*v), strings.ToLower(f)) {
			return false
		}
	}
	return true
}

func lessValue(a, b *string, numeric bool) bool {
	// NULLs sort last ascending, as in PostgreSQL.
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	if numeric {
		da, _, errA := apd.NewFromString(*a)
		db, _, errB := apd.NewFromString(*b)
		if errA == nil && errB == nil {
			return da.Cmp(db) < 0
		}
	}
	return *a < *b
}

// buildPage filters, sorts and paginates stored rows into a page.
func buildPage(def TableDef, cfg model.GridConfig, all []storedRow, pq pageQuery) model.Page {
	var matched []storedRow
	for _, r := range all {
		if matchesFilters(r, pq.filters) {
			matched = append(matched, r)
		}
	}
	col, _ := def.column(pq.sort)
	numeric := isNumericType(col.DataType)
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].Values[pq.sort], matched[j].Values[pq.sort]
		if pq.order == "desc" {
			return lessValue(b, a, numeric)
		}
		return lessValue(a, b, numeric)
	})

	total := len(matched)
	start := (pq.page - 1) * pq.perPage
	if start > total {
		start = total
	}
	end := start + pq.perPage
	if end > total {
		end = total
	}

	page := model.Page{
		Config:  cfg,
		Rows:    []model.PageRow{},
		Page:    pq.page,
		PerPage: pq.perPage,
		Total:   total,
		Sort:    pq.sort,
		Order:   pq.order,
		Filters: pq.filters,
	}
	for _, r := range matched[start:end] {
		values := make(map[string]string, len(def.Columns))
		for _, c := range def.Columns {
			if v := r.Values[c.Name]; v != nil {
				values[c.Name] = *v
			} else {
				values[c.Name] = ""
			}
		}
		pr := model.PageRow{Values: values}
		if len(def.PKColumns) > 0 {
			pr.PK = json.RawMessage(r.Key)
		}
		page.Rows = append(page.Rows, pr)
	}
	return page
}

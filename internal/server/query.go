package server

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	paramSearch      = "q"
	paramFilter      = "filter-"
	paramSort        = "sort"
	paramDir         = "dir"
	paramPage        = "page"
	paramPerPage     = "per_page"
	paramNav         = "nav"
	paramShowFilters = "show_filters"

	navPrev    = "prev"
	navNext    = "next"
	navClear   = "clear"
	navRefresh = "refresh"
)

// viewState is the table state carried in the query string of a request.
type viewState struct {
	Search      string
	Filters     map[string]string
	Sort        string
	Dir         string
	Page        int
	PerPage     int
	Nav         string
	ShowFilters bool
}

// parseState reads the form fields. The first value of a repeated field wins,
// so a page button outranks the hidden page input that follows it.
func parseState(v url.Values) viewState {
	st := viewState{
		Search:      strings.TrimSpace(v.Get(paramSearch)),
		Filters:     make(map[string]string),
		Sort:        v.Get(paramSort),
		Dir:         v.Get(paramDir),
		Nav:         v.Get(paramNav),
		ShowFilters: v.Get(paramShowFilters) == "1",
	}
	st.Page, _ = strconv.Atoi(v.Get(paramPage))
	st.PerPage, _ = strconv.Atoi(v.Get(paramPerPage))
	for key := range v {
		if col, ok := strings.CutPrefix(key, paramFilter); ok && col != "" {
			if val := strings.TrimSpace(v.Get(key)); val != "" {
				st.Filters[col] = val
			}
		}
	}

	switch st.Nav {
	case navClear:
		clear(st.Filters)
		st.Page = 1
	case navRefresh:
		st = viewState{Filters: map[string]string{}, PerPage: st.PerPage}
	}
	return st
}

// values encodes the state back into a query string without navigation.
func (st viewState) values() url.Values {
	v := url.Values{}
	if st.Search != "" {
		v.Set(paramSearch, st.Search)
	}
	keys := make([]string, 0, len(st.Filters))
	for k := range st.Filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v.Set(paramFilter+k, st.Filters[k])
	}
	if st.Sort != "" {
		v.Set(paramSort, st.Sort)
		v.Set(paramDir, st.Dir)
	}
	if st.Page > 1 {
		v.Set(paramPage, strconv.Itoa(st.Page))
	}
	if st.PerPage > 0 {
		v.Set(paramPerPage, strconv.Itoa(st.PerPage))
	}
	if st.ShowFilters {
		v.Set(paramShowFilters, "1")
	}
	return v
}

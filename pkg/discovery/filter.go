package discovery

import "strings"

// Filter decides whether a quote record's sector satisfies the
// requested sectors. Pure: static tables only, no I/O.
type Filter struct {
	synonyms map[string]string
}

// NewFilter builds a relevance filter over a sector synonym table
// mapping lowercase provider names to their canonical form.
func NewFilter(synonyms map[string]string) *Filter {
	return &Filter{synonyms: synonyms}
}

// IsRelevant accepts when any requested sector matches the record's
// sector: case-insensitive exact match, substring in either direction,
// or synonym-table equivalence. An empty requested set accepts
// everything (subsector-only request), and so does an empty record
// sector — missing metadata should not drop a possibly valid company.
func (f *Filter) IsRelevant(requestedSectors []string, recordSector string) bool {
	if len(requestedSectors) == 0 {
		return true
	}

	record := strings.ToLower(strings.TrimSpace(recordSector))
	if record == "" {
		return true
	}

	for _, requested := range requestedSectors {
		req := strings.ToLower(strings.TrimSpace(requested))
		if req == "" {
			continue
		}

		if req == record {
			return true
		}
		if strings.Contains(record, req) || strings.Contains(req, record) {
			return true
		}
		if f.canonical(req) == f.canonical(record) {
			return true
		}
	}

	return false
}

func (f *Filter) canonical(sector string) string {
	if canon, ok := f.synonyms[sector]; ok {
		return strings.ToLower(canon)
	}
	return sector
}

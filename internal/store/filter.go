// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"strings"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Filter restricts entries by metadata. Zero-valued fields do not filter.
type Filter struct {
	// IsAbstract keeps entries whose is_abstract flag is in the set.
	IsAbstract []bool

	// PaperDomains keeps entries whose classified domain is in the set.
	PaperDomains []types.Domain

	// MinDateInt keeps entries with date_published_int >= MinDateInt.
	MinDateInt int

	// BeforeDateInt keeps entries with date_published_int < BeforeDateInt.
	BeforeDateInt int

	// SourceID keeps the chunks of one paper.
	SourceID string
}

// AbstractsOnly matches chunk 0 of every paper.
func AbstractsOnly() Filter {
	return Filter{IsAbstract: []bool{true}}
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return len(f.IsAbstract) == 0 && len(f.PaperDomains) == 0 &&
		f.MinDateInt == 0 && f.BeforeDateInt == 0 && f.SourceID == ""
}

// where builds the WHERE clause (with leading space) and its arguments.
func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)

	if len(f.IsAbstract) > 0 {
		conds = append(conds, `is_abstract IN (`+placeholders(len(f.IsAbstract))+`)`)
		for _, v := range f.IsAbstract {
			args = append(args, v)
		}
	}

	if len(f.PaperDomains) > 0 {
		conds = append(conds, `paper_domain IN (`+placeholders(len(f.PaperDomains))+`)`)
		for _, d := range f.PaperDomains {
			args = append(args, string(d))
		}
	}

	if f.MinDateInt > 0 {
		conds = append(conds, `date_published_int >= ?`)
		args = append(args, f.MinDateInt)
	}

	if f.BeforeDateInt > 0 {
		conds = append(conds, `date_published_int < ?`)
		args = append(args, f.BeforeDateInt)
	}

	if f.SourceID != "" {
		conds = append(conds, `source_id = ?`)
		args = append(args, f.SourceID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

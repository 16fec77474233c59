package models

import (
	"strings"

	"github.com/desertthunder/ytsort/internal/shared"
)

// SortKey names the field playlist items are ordered by.
type SortKey string

const (
	SortByTitle    SortKey = "title"
	SortByDate     SortKey = "date"
	SortByChannel  SortKey = "channel"
	SortByDuration SortKey = "duration" // recognized but rejected by the sort engine
)

// Direction is ascending or descending.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortSpec is an immutable sort request.
type SortSpec struct {
	Key       SortKey   `json:"sort_by"`
	Direction Direction `json:"order"`
}

func (s SortSpec) String() string { return string(s.Key) + "/" + string(s.Direction) }

// ParseSortSpec validates the user facing sort_by/order pair.
//
// Both values are required. "duration" parses successfully so the sort engine can
// report it as unsupported rather than invalid.
func ParseSortSpec(sortBy, order string) (SortSpec, error) {
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	order = strings.ToLower(strings.TrimSpace(order))

	if sortBy == "" {
		return SortSpec{}, shared.Faultf(shared.FaultValidation, "sort", "%w: sort_by", shared.ErrMissingArgument)
	}
	if order == "" {
		return SortSpec{}, shared.Faultf(shared.FaultValidation, "sort", "%w: order", shared.ErrMissingArgument)
	}

	var spec SortSpec
	switch SortKey(sortBy) {
	case SortByTitle, SortByDate, SortByChannel, SortByDuration:
		spec.Key = SortKey(sortBy)
	default:
		return SortSpec{}, shared.Faultf(shared.FaultValidation, "sort", "%w: unknown sort key %q", shared.ErrInvalidArgument, sortBy)
	}

	switch order {
	case "asc", "ascending":
		spec.Direction = Ascending
	case "desc", "descending":
		spec.Direction = Descending
	default:
		return SortSpec{}, shared.Faultf(shared.FaultValidation, "sort", "%w: unknown order %q", shared.ErrInvalidArgument, order)
	}

	return spec, nil
}

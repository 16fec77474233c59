package tasks

import (
	"slices"
	"strings"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

type comparator func(a, b models.EnrichedItem) int

// CheckSpec reports whether items can be sorted by spec. Duration is recognized but unsupported.
func CheckSpec(spec models.SortSpec) error {
	if spec.Direction != models.Ascending && spec.Direction != models.Descending {
		return shared.Faultf(shared.FaultValidation, "sort", "%w: unknown order %q", shared.ErrInvalidArgument, spec.Direction)
	}

	switch spec.Key {
	case models.SortByTitle, models.SortByDate, models.SortByChannel:
		return nil
	case models.SortByDuration:
		return shared.Faultf(shared.FaultUnsupported, "sort", "%w: sorting by duration", shared.ErrNotImplemented)
	case "":
		return shared.Faultf(shared.FaultValidation, "sort", "%w: sort_by", shared.ErrMissingArgument)
	default:
		return shared.Faultf(shared.FaultValidation, "sort", "%w: unknown sort key %q", shared.ErrInvalidArgument, spec.Key)
	}
}

// SortItems returns a stably sorted copy of items. Descending negates the ascending comparator.
func SortItems(items []models.EnrichedItem, spec models.SortSpec) ([]models.EnrichedItem, error) {
	if err := CheckSpec(spec); err != nil {
		return nil, err
	}

	var cmp comparator
	switch spec.Key {
	case models.SortByTitle:
		cmp = byTitle
	case models.SortByDate:
		cmp = byDate
	case models.SortByChannel:
		cmp = byChannel
	}
	if spec.Direction == models.Descending {
		asc := cmp
		cmp = func(a, b models.EnrichedItem) int { return -asc(a, b) }
	}

	out := slices.Clone(items)
	slices.SortStableFunc(out, cmp)
	return out, nil
}

func byTitle(a, b models.EnrichedItem) int { return strings.Compare(a.Title, b.Title) }

func byChannel(a, b models.EnrichedItem) int { return strings.Compare(a.ChannelTitle, b.ChannelTitle) }

// byDate orders by instant. Unparseable timestamps sort after parseable ones, by raw string.
func byDate(a, b models.EnrichedItem) int {
	ta, okA := a.PublishedTime()
	tb, okB := b.PublishedTime()

	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a.PublishedAt, b.PublishedAt)
	}
}

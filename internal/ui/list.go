package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytsort/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = videoItem{}
	_ list.Item = sortOption{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string       { return i.playlist.Title }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d videos", i.playlist.ItemCount)
	if i.playlist.Description != "" {
		first, _, _ := strings.Cut(i.playlist.Description, "\n")
		desc = fmt.Sprintf("%s • %s", desc, first)
	}
	return desc
}

// videoItem wraps [models.EnrichedItem] to implement [list.Item].
type videoItem struct {
	item models.EnrichedItem
}

func (i videoItem) FilterValue() string { return i.item.Title }
func (i videoItem) Title() string       { return i.item.Title }
func (i videoItem) Description() string {
	desc := i.item.ChannelTitle
	if ts, ok := i.item.PublishedTime(); ok {
		if desc != "" {
			desc += " • "
		}
		desc += ts.Format("2006-01-02")
	}
	return desc
}

// sortOption is one selectable [models.SortSpec].
type sortOption struct {
	spec models.SortSpec
}

var sortOptions = []sortOption{
	{models.SortSpec{Key: models.SortByTitle, Direction: models.Ascending}},
	{models.SortSpec{Key: models.SortByTitle, Direction: models.Descending}},
	{models.SortSpec{Key: models.SortByDate, Direction: models.Ascending}},
	{models.SortSpec{Key: models.SortByDate, Direction: models.Descending}},
	{models.SortSpec{Key: models.SortByChannel, Direction: models.Ascending}},
	{models.SortSpec{Key: models.SortByChannel, Direction: models.Descending}},
}

func (o sortOption) FilterValue() string { return o.spec.String() }

func (o sortOption) Title() string {
	switch o.spec.Key {
	case models.SortByDate:
		if o.spec.Direction == models.Descending {
			return "Newest first"
		}
		return "Oldest first"
	case models.SortByChannel:
		return "Channel " + directionLabel(o.spec.Direction)
	default:
		return "Title " + directionLabel(o.spec.Direction)
	}
}

func (o sortOption) Description() string {
	return fmt.Sprintf("sort_by=%s order=%s", o.spec.Key, o.spec.Direction)
}

func directionLabel(d models.Direction) string {
	if d == models.Descending {
		return "Z → A"
	}
	return "A → Z"
}

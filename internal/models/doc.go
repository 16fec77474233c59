// Package models defines domain entities and persistence interfaces for ytsort.
//
// The package contains two categories of types:
//
// 1. Pipeline values, produced and consumed by the listing, aggregation, sort and materialize stages
//   - [PlaylistItemRecord] : one entry of a playlist-items page
//   - [VideoRecord] : video metadata looked up in batches to enrich items
//   - [EnrichedItem] : the unit sorted and materialized; its [Thumbnails] are never nil
//   - [SortSpec] : key and direction, parsed and validated by [ParseSortSpec]
//   - [NewPlaylistRequest] : title, description, privacy and the ordered video ids to insert
//
// 2. Persistent entities
//   - [MaterializeJob] : checkpoints of a materialize run so a partial copy can be resumed
//
// Persistent entities implement [Model]; [Repository] defines standard CRUD operations.
package models

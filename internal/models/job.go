package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/shared"
)

// MaterializeState is a step of the materialize state machine:
//
//	NotStarted -> PlaylistCreated -> InsertingItem(k) -> Completed
//
// Any state may fail into Failed, which is terminal.
type MaterializeState string

const (
	StateNotStarted      MaterializeState = "not_started"
	StatePlaylistCreated MaterializeState = "playlist_created"
	StateInsertingItem   MaterializeState = "inserting_item"
	StateCompleted       MaterializeState = "completed"
	StateFailed          MaterializeState = "failed"
)

// Valid reports whether s is a known state.
func (s MaterializeState) Valid() bool {
	switch s {
	case StateNotStarted, StatePlaylistCreated, StateInsertingItem, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s MaterializeState) Terminal() bool { return s == StateCompleted || s == StateFailed }

// MaterializeJob records one attempt to copy a sorted playlist into a new remote playlist.
//
// LastSuccessful is the 1-based index of the last inserted item, so a failed job can be
// resumed at LastSuccessful+1 against TargetPlaylistID.
type MaterializeJob struct {
	id               string
	sequence         int
	sourcePlaylistID string
	targetPlaylistID string
	title            string
	spec             SortSpec
	state            MaterializeState
	itemsTotal       int
	lastSuccessful   int
	errorMessage     string
	completedAt      *time.Time
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

// NewMaterializeJob creates a job in the NotStarted state.
func NewMaterializeJob(sequence int, sourcePlaylistID, title string, spec SortSpec) *MaterializeJob {
	now := time.Now()
	return &MaterializeJob{
		sequence:         sequence,
		sourcePlaylistID: sourcePlaylistID,
		title:            title,
		spec:             spec,
		state:            StateNotStarted,
		createdAt:        now,
		updatedAt:        now,
	}
}

func (j *MaterializeJob) ID() string                { return j.id }
func (j *MaterializeJob) Sequence() int             { return j.sequence }
func (j *MaterializeJob) SourcePlaylistID() string  { return j.sourcePlaylistID }
func (j *MaterializeJob) TargetPlaylistID() string  { return j.targetPlaylistID }
func (j *MaterializeJob) Title() string             { return j.title }
func (j *MaterializeJob) Spec() SortSpec            { return j.spec }
func (j *MaterializeJob) State() MaterializeState   { return j.state }
func (j *MaterializeJob) ItemsTotal() int           { return j.itemsTotal }
func (j *MaterializeJob) LastSuccessful() int       { return j.lastSuccessful }
func (j *MaterializeJob) ErrorMessage() string      { return j.errorMessage }
func (j *MaterializeJob) CompletedAt() *time.Time   { return j.completedAt }
func (j *MaterializeJob) CreatedAt() time.Time      { return j.createdAt }
func (j *MaterializeJob) UpdatedAt() time.Time      { return j.updatedAt }
func (j *MaterializeJob) DeletedAt() *time.Time     { return j.deletedAt }
func (j *MaterializeJob) SetID(id string)           { j.id = id }
func (j *MaterializeJob) SetSequence(seq int)       { j.sequence = seq }
func (j *MaterializeJob) SetCreatedAt(t time.Time)  { j.createdAt = t }
func (j *MaterializeJob) SetUpdatedAt(t time.Time)  { j.updatedAt = t }
func (j *MaterializeJob) SetDeletedAt(t *time.Time) { j.deletedAt = t }
func (j *MaterializeJob) SetCompletedAt(t *time.Time) {
	j.completedAt = t
}

// SetTargetPlaylistID records the id of the created playlist.
func (j *MaterializeJob) SetTargetPlaylistID(id string) { j.targetPlaylistID = id }

// SetState moves the job to s.
func (j *MaterializeJob) SetState(s MaterializeState) { j.state = s }

// SetItemsTotal records how many items the job inserts.
func (j *MaterializeJob) SetItemsTotal(n int) { j.itemsTotal = n }

// SetLastSuccessful records the 1-based index of the last inserted item.
func (j *MaterializeJob) SetLastSuccessful(k int) { j.lastSuccessful = k }

// SetErrorMessage records the failure reason.
func (j *MaterializeJob) SetErrorMessage(msg string) { j.errorMessage = msg }

// Resumable reports whether the job stopped after creating its playlist but before inserting every item.
func (j *MaterializeJob) Resumable() bool {
	return j.targetPlaylistID != "" && j.state != StateCompleted && j.deletedAt == nil
}

// Validate checks the job's invariants.
func (j *MaterializeJob) Validate() error {
	if j.sourcePlaylistID == "" {
		return fmt.Errorf("%w: source playlist id is required", shared.ErrInvalidInput)
	}
	if j.title == "" {
		return fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	}
	if j.spec.Key == "" || j.spec.Direction == "" {
		return fmt.Errorf("%w: sort spec is required", shared.ErrInvalidInput)
	}
	if !j.state.Valid() {
		return fmt.Errorf("%w: unknown state %q", shared.ErrInvalidInput, j.state)
	}
	if j.lastSuccessful < 0 || (j.itemsTotal > 0 && j.lastSuccessful > j.itemsTotal) {
		return fmt.Errorf("%w: last successful index %d out of range 0..%d", shared.ErrInvalidInput, j.lastSuccessful, j.itemsTotal)
	}
	if j.state != StateNotStarted && j.state != StateFailed && j.targetPlaylistID == "" {
		return fmt.Errorf("%w: state %s requires a target playlist", shared.ErrInvalidInput, j.state)
	}
	return nil
}

// jobJSON is the exported view of a [MaterializeJob].
type jobJSON struct {
	ID               string           `json:"id"`
	Sequence         int              `json:"sequence"`
	SourcePlaylistID string           `json:"source_playlist_id"`
	TargetPlaylistID string           `json:"target_playlist_id,omitempty"`
	Title            string           `json:"title"`
	Spec             SortSpec         `json:"sort"`
	State            MaterializeState `json:"state"`
	ItemsTotal       int              `json:"items_total"`
	LastSuccessful   int              `json:"last_successful"`
	Resumable        bool             `json:"resumable"`
	ErrorMessage     string           `json:"error,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// MarshalJSON encodes the job for CLI output.
func (j *MaterializeJob) MarshalJSON() ([]byte, error) {
	return json.Marshal(jobJSON{
		ID:               j.id,
		Sequence:         j.sequence,
		SourcePlaylistID: j.sourcePlaylistID,
		TargetPlaylistID: j.targetPlaylistID,
		Title:            j.title,
		Spec:             j.spec,
		State:            j.state,
		ItemsTotal:       j.itemsTotal,
		LastSuccessful:   j.lastSuccessful,
		Resumable:        j.Resumable(),
		ErrorMessage:     j.errorMessage,
		CompletedAt:      j.completedAt,
		CreatedAt:        j.createdAt,
		UpdatedAt:        j.updatedAt,
	})
}

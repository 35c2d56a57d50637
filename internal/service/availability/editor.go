package availability

import (
	"context"
	"slices"
	"strconv"

	"github.com/healthfirst/portal-api/internal/model"
)

// Submitter receives a complete draft when the provider saves.
type Submitter interface {
	SubmitAvailability(ctx context.Context, token string, draft model.AvailabilityDraft) error
}

// Editor holds one provider's in-memory availability draft. Every mutation
// replaces the affected collection and hands back a copy, so callers never
// share backing arrays with the editor.
//
// Editor is not safe for concurrent use; Service serializes access per session.
type Editor struct {
	draft model.AvailabilityDraft

	// Ids come from monotonic counters, never from collection length, so an
	// id is not reused after removals.
	lastSlotID    int
	lastBlockedID int
}

// NewEditor opens an editor on the placeholder draft.
func NewEditor() *Editor {
	return NewEditorFrom(model.PlaceholderDraft())
}

// NewEditorFrom opens an editor on an existing draft. Counters start past the
// largest numeric id already present.
func NewEditorFrom(draft model.AvailabilityDraft) *Editor {
	e := &Editor{draft: draft.Clone()}
	for _, s := range e.draft.WeeklySlots {
		e.lastSlotID = max(e.lastSlotID, numericID(s.ID))
	}
	for _, b := range e.draft.BlockedIntervals {
		e.lastBlockedID = max(e.lastBlockedID, numericID(b.ID))
	}
	return e
}

// Draft returns a deep copy of the current draft.
func (e *Editor) Draft() model.AvailabilityDraft {
	return e.draft.Clone()
}

func (e *Editor) SelectClinician(name string) bool {
	if !model.IsClinician(name) {
		return false
	}
	e.draft.ClinicianName = name
	return true
}

// SetTimezone applies a known label or "" (unselected). Anything else is
// ignored and reported as not applied.
func (e *Editor) SetTimezone(tz string) bool {
	if !model.IsTimezone(tz) {
		return false
	}
	e.draft.Timezone = tz
	return true
}

func (e *Editor) DateRanges() []model.DateRange {
	return slices.Clone(e.draft.DateRanges)
}

func (e *Editor) AddDateRange() []model.DateRange {
	next := make([]model.DateRange, 0, len(e.draft.DateRanges)+1)
	next = append(next, e.draft.DateRanges...)
	next = append(next, model.DateRange{})
	e.draft.DateRanges = next
	return e.DateRanges()
}

// RemoveDateRange ignores an out-of-range index.
func (e *Editor) RemoveDateRange(index int) []model.DateRange {
	if index < 0 || index >= len(e.draft.DateRanges) {
		return e.DateRanges()
	}
	next := make([]model.DateRange, 0, len(e.draft.DateRanges)-1)
	next = append(next, e.draft.DateRanges[:index]...)
	next = append(next, e.draft.DateRanges[index+1:]...)
	e.draft.DateRanges = next
	return e.DateRanges()
}

// UpdateDateRange sets startDate or endDate of one entry. No ordering is
// checked between the two.
func (e *Editor) UpdateDateRange(index int, field, value string) []model.DateRange {
	if index < 0 || index >= len(e.draft.DateRanges) {
		return e.DateRanges()
	}
	next := slices.Clone(e.draft.DateRanges)
	switch field {
	case model.FieldStartDate:
		next[index].StartDate = value
	case model.FieldEndDate:
		next[index].EndDate = value
	default:
		return e.DateRanges()
	}
	e.draft.DateRanges = next
	return e.DateRanges()
}

func (e *Editor) WeeklySlots() []model.WeeklySlot {
	return slices.Clone(e.draft.WeeklySlots)
}

func (e *Editor) AddWeeklySlot() []model.WeeklySlot {
	e.lastSlotID++
	slot := model.WeeklySlot{
		ID:       strconv.Itoa(e.lastSlotID),
		Day:      model.DefaultSlotDay,
		FromTime: model.DefaultSlotFromTime,
		TillTime: model.DefaultSlotTillTime,
	}
	next := make([]model.WeeklySlot, 0, len(e.draft.WeeklySlots)+1)
	next = append(next, e.draft.WeeklySlots...)
	e.draft.WeeklySlots = append(next, slot)
	return e.WeeklySlots()
}

func (e *Editor) RemoveWeeklySlot(id string) []model.WeeklySlot {
	e.draft.WeeklySlots = filter(e.draft.WeeklySlots, func(s model.WeeklySlot) bool {
		return s.ID != id
	})
	return e.WeeklySlots()
}

// UpdateWeeklySlot sets day, fromTime or tillTime on the matching entry. An
// unknown id or field leaves the collection as it was.
func (e *Editor) UpdateWeeklySlot(id, field, value string) []model.WeeklySlot {
	switch field {
	case model.FieldDay, model.FieldFromTime, model.FieldTillTime:
	default:
		return e.WeeklySlots()
	}

	next := make([]model.WeeklySlot, len(e.draft.WeeklySlots))
	for i, s := range e.draft.WeeklySlots {
		if s.ID == id {
			switch field {
			case model.FieldDay:
				s.Day = value
			case model.FieldFromTime:
				s.FromTime = value
			case model.FieldTillTime:
				s.TillTime = value
			}
		}
		next[i] = s
	}
	e.draft.WeeklySlots = next
	return e.WeeklySlots()
}

func (e *Editor) BlockedIntervals() []model.BlockedInterval {
	return slices.Clone(e.draft.BlockedIntervals)
}

// AddBlockedInterval appends an empty row waiting for input.
func (e *Editor) AddBlockedInterval() []model.BlockedInterval {
	e.lastBlockedID++
	next := make([]model.BlockedInterval, 0, len(e.draft.BlockedIntervals)+1)
	next = append(next, e.draft.BlockedIntervals...)
	e.draft.BlockedIntervals = append(next, model.BlockedInterval{ID: strconv.Itoa(e.lastBlockedID)})
	return e.BlockedIntervals()
}

func (e *Editor) RemoveBlockedInterval(id string) []model.BlockedInterval {
	e.draft.BlockedIntervals = filter(e.draft.BlockedIntervals, func(b model.BlockedInterval) bool {
		return b.ID != id
	})
	return e.BlockedIntervals()
}

func (e *Editor) UpdateBlockedInterval(id, field, value string) []model.BlockedInterval {
	switch field {
	case model.FieldDate, model.FieldFromTime, model.FieldTillTime:
	default:
		return e.BlockedIntervals()
	}

	next := make([]model.BlockedInterval, len(e.draft.BlockedIntervals))
	for i, b := range e.draft.BlockedIntervals {
		if b.ID == id {
			switch field {
			case model.FieldDate:
				b.Date = value
			case model.FieldFromTime:
				b.FromTime = value
			case model.FieldTillTime:
				b.TillTime = value
			}
		}
		next[i] = b
	}
	e.draft.BlockedIntervals = next
	return e.BlockedIntervals()
}

// Save hands a snapshot of the draft to the submitter in a single exchange.
// The draft stays open for editing whatever the outcome.
func (e *Editor) Save(ctx context.Context, s Submitter, token string) error {
	return s.SubmitAvailability(ctx, token, e.Draft())
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func numericID(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

package model

// WeeklySlot is a recurring weekday time window.
type WeeklySlot struct {
	ID       string `json:"id"`
	Day      string `json:"day"`
	FromTime string `json:"fromTime"`
	TillTime string `json:"tillTime"`
}

// DateRange is an ad-hoc override window layered on top of weekly slots.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// BlockedInterval marks time the provider is unavailable. Date and times may be
// empty while the row is still being filled in.
type BlockedInterval struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	FromTime string `json:"fromTime"`
	TillTime string `json:"tillTime"`
}

// AvailabilityDraft is the complete editable unit held by the availability editor.
type AvailabilityDraft struct {
	ClinicianName    string            `json:"clinicianName"`
	DateRanges       []DateRange       `json:"dateRanges"`
	WeeklySlots      []WeeklySlot      `json:"weeklySlots"`
	Timezone         string            `json:"timezone"`
	BlockedIntervals []BlockedInterval `json:"blockedIntervals"`
}

// Clone returns a deep copy of the draft.
func (d AvailabilityDraft) Clone() AvailabilityDraft {
	return AvailabilityDraft{
		ClinicianName:    d.ClinicianName,
		DateRanges:       append([]DateRange{}, d.DateRanges...),
		WeeklySlots:      append([]WeeklySlot{}, d.WeeklySlots...),
		Timezone:         d.Timezone,
		BlockedIntervals: append([]BlockedInterval{}, d.BlockedIntervals...),
	}
}

// Field names accepted by the update operations.
const (
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"
	FieldDay       = "day"
	FieldFromTime  = "fromTime"
	FieldTillTime  = "tillTime"
	FieldDate      = "date"
)

// Default values for a freshly added weekly slot.
const (
	DefaultSlotDay      = "Monday"
	DefaultSlotFromTime = "09:00"
	DefaultSlotTillTime = "18:00"
)

var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var Timezones = []string{
	"UTC-12:00", "UTC-11:00", "UTC-10:00", "UTC-09:00", "UTC-08:00", "UTC-07:00",
	"UTC-06:00", "UTC-05:00", "UTC-04:00", "UTC-03:00", "UTC-02:00", "UTC-01:00",
	"UTC+00:00", "UTC+01:00", "UTC+02:00", "UTC+03:00", "UTC+04:00", "UTC+05:00",
	"UTC+05:30", "UTC+06:00", "UTC+07:00", "UTC+08:00", "UTC+09:00", "UTC+10:00",
	"UTC+11:00", "UTC+12:00",
}

// Clinicians stands in for a clinician directory.
var Clinicians = []string{"John Doe", "Jane Smith", "Dr. Johnson"}

func IsWeekday(v string) bool {
	return contains(Weekdays, v)
}

// IsTimezone reports whether v is a known label. The empty string means
// "unselected" and is accepted.
func IsTimezone(v string) bool {
	return v == "" || contains(Timezones, v)
}

func IsClinician(v string) bool {
	return contains(Clinicians, v)
}

// PlaceholderDraft returns the content the editor shows when first opened.
func PlaceholderDraft() AvailabilityDraft {
	slots := make([]WeeklySlot, 0, 6)
	for i, day := range Weekdays[:6] {
		slots = append(slots, WeeklySlot{
			ID:       itoa(i + 1),
			Day:      day,
			FromTime: DefaultSlotFromTime,
			TillTime: DefaultSlotTillTime,
		})
	}

	return AvailabilityDraft{
		ClinicianName: Clinicians[0],
		DateRanges: []DateRange{
			{StartDate: "2025-06-19", EndDate: "2025-06-25"},
		},
		WeeklySlots: slots,
		Timezone:    "",
		BlockedIntervals: []BlockedInterval{
			{ID: "1"},
			{ID: "2"},
		},
	}
}

// AvailabilityOptions lists the choices offered by the availability screen.
type AvailabilityOptions struct {
	Weekdays   []string `json:"weekdays"`
	Timezones  []string `json:"timezones"`
	Clinicians []string `json:"clinicians"`
}

func DefaultAvailabilityOptions() AvailabilityOptions {
	return AvailabilityOptions{
		Weekdays:   Weekdays,
		Timezones:  Timezones,
		Clinicians: Clinicians,
	}
}

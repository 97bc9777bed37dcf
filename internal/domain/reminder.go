package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReminderType is the closed set of reminder policies a bookmark can carry.
type ReminderType int

const (
	ReminderNone ReminderType = iota
	ReminderLaterToday
	ReminderNextBusinessDay
	ReminderTomorrow
	ReminderNextWeek
	ReminderNextMonth
	ReminderCustom
	ReminderAtDesktop
	ReminderLaterThisWeek
	ReminderStartOfNextBusinessWeek
)

// MaxReminderHorizon is how far in the future a reminder may be set.
const MaxReminderHorizon = 10 // years

type reminderDef struct {
	name         string
	humanName    string
	requiresTime bool
}

// reminderTypes is the registry of known variants.
// Every timed variant must be listed here with requiresTime set.
var reminderTypes = map[ReminderType]reminderDef{
	ReminderNone:                    {name: "none", humanName: "None", requiresTime: false},
	ReminderLaterToday:              {name: "later_today", humanName: "Later today", requiresTime: true},
	ReminderNextBusinessDay:         {name: "next_business_day", humanName: "Next business day", requiresTime: true},
	ReminderTomorrow:                {name: "tomorrow", humanName: "Tomorrow", requiresTime: true},
	ReminderNextWeek:                {name: "next_week", humanName: "Next week", requiresTime: true},
	ReminderNextMonth:               {name: "next_month", humanName: "Next month", requiresTime: true},
	ReminderCustom:                  {name: "custom", humanName: "Custom", requiresTime: true},
	ReminderAtDesktop:               {name: "at_desktop", humanName: "Next time I'm at my desktop", requiresTime: false},
	ReminderLaterThisWeek:           {name: "later_this_week", humanName: "Later this week", requiresTime: true},
	ReminderStartOfNextBusinessWeek: {name: "start_of_next_business_week", humanName: "Start of next business week", requiresTime: true},
}

// RequiresTime reports whether the variant needs a future timestamp and a scheduled job.
// Unregistered values require a time, so they can never bypass validation.
func (rt ReminderType) RequiresTime() bool {
	def, ok := reminderTypes[rt]
	if !ok {
		return true
	}
	return def.requiresTime
}

// IsKnown reports whether rt is a registered variant.
func (rt ReminderType) IsKnown() bool {
	_, ok := reminderTypes[rt]
	return ok
}

// String returns the machine name (e.g. "tomorrow").
func (rt ReminderType) String() string {
	if def, ok := reminderTypes[rt]; ok {
		return def.name
	}
	return fmt.Sprintf("reminder_type(%d)", int(rt))
}

// HumanName returns the label shown to users.
func (rt ReminderType) HumanName() string {
	if def, ok := reminderTypes[rt]; ok {
		return def.humanName
	}
	return rt.String()
}

// ParseReminderType maps a machine name to its variant. Empty input means ReminderNone.
func ParseReminderType(name string) (ReminderType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ReminderNone, nil
	}
	for rt, def := range reminderTypes {
		if def.name == name {
			return rt, nil
		}
	}
	return ReminderNone, fmt.Errorf("unknown reminder type: %q", name)
}

// NormalizeReminderAt drops the timestamp for variants that never schedule a job
// and converts the rest to UTC.
func NormalizeReminderAt(rt ReminderType, at *time.Time) *time.Time {
	if at == nil || !rt.RequiresTime() {
		return nil
	}
	utc := at.UTC()
	return &utc
}

// ValidateReminder checks a reminder type and time against now.
// It has no side effects and returns at most one error.
func ValidateReminder(rt ReminderType, at *time.Time, now time.Time) ValidationErrors {
	if rt.RequiresTime() && at == nil {
		return ValidationErrors{NewTimeMustBeProvided(rt)}
	}
	if at == nil {
		return nil
	}
	if !at.After(now) {
		return ValidationErrors{NewValidationError(CodeCannotSetPastReminder)}
	}
	if at.After(now.AddDate(MaxReminderHorizon, 0, 0)) {
		return ValidationErrors{NewValidationError(CodeCannotSetReminderInDistantFuture)}
	}
	return nil
}

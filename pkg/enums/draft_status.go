package enums

import "fmt"

// DraftStatus tracks a draft through generation and publishing.
type DraftStatus string

const (
	DraftStatusDraft      DraftStatus = "draft"
	DraftStatusProcessing DraftStatus = "processing"
	DraftStatusReady      DraftStatus = "ready"
	DraftStatusScheduled  DraftStatus = "scheduled"
	DraftStatusPublished  DraftStatus = "published"
	DraftStatusFailed     DraftStatus = "failed"
)

var validDraftStatuses = []DraftStatus{
	DraftStatusDraft,
	DraftStatusProcessing,
	DraftStatusReady,
	DraftStatusScheduled,
	DraftStatusPublished,
	DraftStatusFailed,
}

// draftTransitions lists the forward moves; failed is reachable from any non-terminal state.
var draftTransitions = map[DraftStatus][]DraftStatus{
	DraftStatusDraft:      {DraftStatusProcessing, DraftStatusFailed},
	DraftStatusProcessing: {DraftStatusReady, DraftStatusFailed},
	DraftStatusReady:      {DraftStatusScheduled, DraftStatusFailed},
	DraftStatusScheduled:  {DraftStatusPublished, DraftStatusFailed},
}

// String returns the raw value.
func (s DraftStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known status.
func (s DraftStatus) IsValid() bool {
	for _, candidate := range validDraftStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no automatic transition leaves this status.
func (s DraftStatus) IsTerminal() bool {
	return s == DraftStatusPublished || s == DraftStatusFailed
}

// CanTransitionTo reports whether moving to next is a legal lifecycle step.
func (s DraftStatus) CanTransitionTo(next DraftStatus) bool {
	for _, candidate := range draftTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanResubmit reports whether a new pipeline run may start from this status.
func (s DraftStatus) CanResubmit() bool {
	return s == DraftStatusDraft || s == DraftStatusFailed
}

// ParseDraftStatus converts raw input into a DraftStatus.
func ParseDraftStatus(value string) (DraftStatus, error) {
	for _, candidate := range validDraftStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid draft status %q", value)
}

package enums

import "fmt"

// VtonStatus tracks a try-on job from submission to its terminal state.
type VtonStatus string

const (
	VtonStatusProcessing VtonStatus = "processing"
	VtonStatusCompleted  VtonStatus = "completed"
	VtonStatusFailed     VtonStatus = "failed"
)

var validVtonStatuses = []VtonStatus{
	VtonStatusProcessing,
	VtonStatusCompleted,
	VtonStatusFailed,
}

// String implements fmt.Stringer.
func (v VtonStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VtonStatus.
func (v VtonStatus) IsValid() bool {
	for _, candidate := range validVtonStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the job has resolved.
func (v VtonStatus) IsTerminal() bool {
	return v == VtonStatusCompleted || v == VtonStatusFailed
}

// ParseVtonStatus converts raw input into a VtonStatus.
func ParseVtonStatus(value string) (VtonStatus, error) {
	for _, candidate := range validVtonStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vton status %q", value)
}

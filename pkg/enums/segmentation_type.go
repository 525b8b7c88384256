package enums

import "fmt"

// SegmentationType selects which part of the outfit a try-on job replaces.
type SegmentationType int

const (
	SegmentationUpperBody SegmentationType = 0
	SegmentationLowerBody SegmentationType = 1
	SegmentationFullBody  SegmentationType = 2
)

// IsValid reports whether the value is a known SegmentationType.
func (s SegmentationType) IsValid() bool {
	switch s {
	case SegmentationUpperBody, SegmentationLowerBody, SegmentationFullBody:
		return true
	default:
		return false
	}
}

// ParseSegmentationType converts raw input into a SegmentationType.
func ParseSegmentationType(value int) (SegmentationType, error) {
	typed := SegmentationType(value)
	if !typed.IsValid() {
		return 0, fmt.Errorf("invalid segmentation type %d", value)
	}
	return typed, nil
}

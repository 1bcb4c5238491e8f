package telemetry

import (
	"errors"
	"fmt"
)

var ErrMissingTarget = errors.New("display target missing")

// MissingTargetError names the channel whose display target is absent.
type MissingTargetError struct {
	Key      string
	TargetID string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("%s: #%s (channel %s)", ErrMissingTarget, e.TargetID, e.Key)
}

func (e *MissingTargetError) Is(target error) bool {
	return target == ErrMissingTarget
}

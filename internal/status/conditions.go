// Package status tracks the phase and conditions of an ephemeral VM session.
package status

import (
	"context"
	"errors"
	"time"
)

// SetCondition adds or updates a condition on the tracker.
// If a condition with the same type already exists, it updates it.
// The LastTransitionTime is only updated if the status changes.
func SetCondition(t *Tracker, condType string, status ConditionStatus, reason, message string) {
	now := time.Now()

	for i := range t.Conditions {
		if t.Conditions[i].Type == condType {
			existing := &t.Conditions[i]

			// Only update LastTransitionTime if status changed
			if existing.Status != status {
				existing.LastTransitionTime = now
			}

			existing.Status = status
			existing.Reason = reason
			existing.Message = message
			return
		}
	}

	t.Conditions = append(t.Conditions, Condition{
		Type:               condType,
		Status:             status,
		LastTransitionTime: now,
		Reason:             reason,
		Message:            message,
	})
}

// GetCondition returns a condition by type, or nil if not found.
func GetCondition(t *Tracker, condType string) *Condition {
	for i := range t.Conditions {
		if t.Conditions[i].Type == condType {
			return &t.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func IsConditionTrue(t *Tracker, condType string) bool {
	cond := GetCondition(t, condType)
	return cond != nil && cond.Status == ConditionTrue
}

// IsConditionFalse returns true if the condition exists and has status False.
func IsConditionFalse(t *Tracker, condType string) bool {
	cond := GetCondition(t, condType)
	return cond != nil && cond.Status == ConditionFalse
}

// MarkSeedReady records the path of the built seed image.
func MarkSeedReady(t *Tracker, path string) {
	SetCondition(t, ConditionSeedReady, ConditionTrue, "SeedBuilt", path)
}

// MarkDiskReady records the path of the root disk.
func MarkDiskReady(t *Tracker, path string) {
	SetCondition(t, ConditionDiskReady, ConditionTrue, "DiskAllocated", path)
}

// MarkISOReady records the path of the cached installer ISO.
func MarkISOReady(t *Tracker, path string) {
	SetCondition(t, ConditionISOReady, ConditionTrue, "ISOCached", path)
}

// MarkFailed marks condType False with err and moves the session to Failed.
// A cancelled context while a VM is booting is recorded as Interrupted.
func MarkFailed(t *Tracker, condType string, err error) {
	reason := "Failed"
	if IsBooting(t.Phase) && errors.Is(err, context.Canceled) {
		reason = "Interrupted"
	}
	TransitionToFailed(t, condType, reason, err.Error())
}

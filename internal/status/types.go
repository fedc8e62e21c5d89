package status

import "time"

// Phase is the lifecycle phase of an ephemeral VM session.
type Phase string

const (
	PhasePending    Phase = "Pending"
	PhaseInstalling Phase = "Installing"
	PhaseFirstBoot  Phase = "FirstBoot"
	PhaseDone       Phase = "Done"
	PhaseFailed     Phase = "Failed"
)

// ConditionStatus is the status of a condition.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// Condition types tracked for a session.
const (
	ConditionSeedReady = "SeedReady"
	ConditionDiskReady = "DiskReady"
	ConditionISOReady  = "ISOReady"
	ConditionInstalled = "Installed"
	ConditionBooted    = "Booted"
)

// Condition records the state of one prerequisite or outcome.
type Condition struct {
	Type               string          `json:"type" yaml:"type"`
	Status             ConditionStatus `json:"status" yaml:"status"`
	LastTransitionTime time.Time       `json:"lastTransitionTime" yaml:"lastTransitionTime"`
	Reason             string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message            string          `json:"message,omitempty" yaml:"message,omitempty"`
}

// Tracker holds the phase and conditions of a single session.
type Tracker struct {
	Phase      Phase       `json:"phase" yaml:"phase"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// NewTracker returns a tracker in the Pending phase.
func NewTracker() *Tracker {
	return &Tracker{Phase: PhasePending}
}

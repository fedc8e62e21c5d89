package status

import (
	"fmt"
)

// TransitionToInstalling transitions the session phase to Installing.
// This should be called right before the install boot is launched.
func TransitionToInstalling(t *Tracker) error {
	if t.Phase != PhasePending {
		return fmt.Errorf("cannot transition to Installing from phase %s", t.Phase)
	}

	t.Phase = PhaseInstalling
	SetCondition(t, ConditionInstalled, ConditionFalse, "Installing", "Automated install in progress")
	return nil
}

// TransitionToFirstBoot transitions the session phase to FirstBoot.
// This should be called once the installer VM has exited cleanly.
func TransitionToFirstBoot(t *Tracker) error {
	if t.Phase != PhaseInstalling {
		return fmt.Errorf("cannot transition to FirstBoot from phase %s", t.Phase)
	}

	t.Phase = PhaseFirstBoot
	SetCondition(t, ConditionInstalled, ConditionTrue, "InstallComplete", "Installer exited cleanly")
	SetCondition(t, ConditionBooted, ConditionUnknown, "Booting", "Waiting for the installed system to start")
	return nil
}

// TransitionToDone transitions the session phase to Done.
func TransitionToDone(t *Tracker) error {
	if t.Phase != PhaseFirstBoot {
		return fmt.Errorf("cannot transition to Done from phase %s", t.Phase)
	}

	t.Phase = PhaseDone
	SetCondition(t, ConditionBooted, ConditionTrue, "FirstBootStarted", "Installed system is running")
	return nil
}

// TransitionToFailed transitions the session phase to Failed and marks
// condType False. This can happen from any phase when an error occurs.
func TransitionToFailed(t *Tracker, condType, reason, message string) {
	t.Phase = PhaseFailed
	if condType != "" {
		SetCondition(t, condType, ConditionFalse, reason, message)
	}
}

// IsTerminal returns true if the phase is terminal (Done or Failed).
func IsTerminal(phase Phase) bool {
	return phase == PhaseDone || phase == PhaseFailed
}

// IsBooting returns true while a VMM process is expected to be running.
func IsBooting(phase Phase) bool {
	return phase == PhaseInstalling || phase == PhaseFirstBoot
}

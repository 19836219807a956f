package alert

// ChangeKind describes what an evaluation or resolution did to an alert
type ChangeKind string

const (
	ChangeKindOpened   ChangeKind = "opened"
	ChangeKindUpdated  ChangeKind = "updated"
	ChangeKindResolved ChangeKind = "resolved"
)

// StateChange is one alert transition, returned to callers and published to subscribers
type StateChange struct {
	Kind          ChangeKind
	Alert         AlertState
	PreviousValue int64
	AutoResolved  bool
}

func opened(a *AlertState) StateChange {
	return StateChange{Kind: ChangeKindOpened, Alert: *a}
}

func updated(a *AlertState, previous int64) StateChange {
	return StateChange{Kind: ChangeKindUpdated, Alert: *a, PreviousValue: previous}
}

func resolved(a *AlertState, auto bool) StateChange {
	return StateChange{Kind: ChangeKindResolved, Alert: *a, PreviousValue: a.CurrentValue, AutoResolved: auto}
}

// ResolvedByOperator builds the change emitted for an explicit resolution
func ResolvedByOperator(a *AlertState) StateChange {
	return resolved(a, false)
}

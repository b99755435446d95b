package entity

type Actor struct {
	ID    string
	Admin bool
}

// Trigger tells what caused an expiry. Recorded for audit only.
type Trigger string

const (
	TriggerClient Trigger = "client"
	TriggerSweep  Trigger = "sweep"
)

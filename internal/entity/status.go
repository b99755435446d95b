package entity

// Status is the delivery state of an outbox event.
type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Processed  Status = "processed"
	Failed     Status = "failed"
)

// TerminalStatuses are never picked up by the relay again.
var TerminalStatuses = []Status{Processed, Failed}

func (s Status) IsTerminal() bool {
	return s == Processed || s == Failed
}

package temporal

const SweepNowSignalName = "sweepNow"

// SweepNowSignal ends an orphan sweep's grace period early.
type SweepNowSignal struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

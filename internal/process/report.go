package process

// Outcome is the final disposition of one item within a stage run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped marks an item left untouched this run because its
	// source data is not available yet. The item stays eligible.
	OutcomeSkipped Outcome = "skipped"
)

// ItemResult records what happened to a single item.
type ItemResult struct {
	ItemID  string
	Title   string
	Outcome Outcome
	// Reason holds the failure message for failed items.
	Reason string
}

// Report aggregates the per-item results of one stage run. Failures are data
// here, not control flow; the caller decides how to present them.
type Report struct {
	Stage     string
	Reclaimed int
	Results   []ItemResult
}

func (r *Report) addCompleted(itemID, title string) {
	r.Results = append(r.Results, ItemResult{ItemID: itemID, Title: title, Outcome: OutcomeCompleted})
}

func (r *Report) addFailed(itemID, title, reason string) {
	r.Results = append(r.Results, ItemResult{ItemID: itemID, Title: title, Outcome: OutcomeFailed, Reason: reason})
}

func (r *Report) addSkipped(itemID, title, reason string) {
	r.Results = append(r.Results, ItemResult{ItemID: itemID, Title: title, Outcome: OutcomeSkipped, Reason: reason})
}

// Completed counts items that finished the stage.
func (r *Report) Completed() int {
	return r.count(OutcomeCompleted)
}

// Failed counts items that were marked failed.
func (r *Report) Failed() int {
	return r.count(OutcomeFailed)
}

// Skipped counts items left pending for a later run.
func (r *Report) Skipped() int {
	return r.count(OutcomeSkipped)
}

func (r *Report) count(outcome Outcome) int {
	n := 0
	for _, result := range r.Results {
		if result.Outcome == outcome {
			n++
		}
	}
	return n
}

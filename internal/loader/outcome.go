package loader

// Outcome is what happened to one record during the fact phase.
type Outcome int

const (
	// OutcomeInserted means a new recall row was created and tagged.
	OutcomeInserted Outcome = iota
	// OutcomeRefreshed means an existing recall with the same content key was updated.
	OutcomeRefreshed
	// OutcomeUnresolvedModel means the brand or model could not be mapped to an id.
	OutcomeUnresolvedModel
	// OutcomeNoID means the insert reported no id, so the row was not tagged.
	OutcomeNoID
	// OutcomeError means a statement failed and the row was rolled back.
	OutcomeError

	outcomeCount
)

var outcomeNames = [outcomeCount]string{
	"inserted",
	"refreshed",
	"skipped_unresolved_model",
	"skipped_no_id",
	"skipped_error",
}

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	if o < 0 || o >= outcomeCount {
		return "unknown"
	}
	return outcomeNames[o]
}

// Outcomes lists every outcome in declaration order.
func Outcomes() []Outcome {
	all := make([]Outcome, 0, outcomeCount)
	for o := range outcomeCount {
		all = append(all, o)
	}
	return all
}

// Stats summarizes a load run.
type Stats struct {
	Records       int // records offered to the fact phase
	DroppedReason int // rows dropped by preprocessing
	Brands        int // Brand rows after the dimension phase
	Models        int // Model rows after the dimension phase
	Keywords      int // Keyword rows after the dimension phase
	Tags          int // junction rows written for new recalls
	outcomes      [outcomeCount]int
}

// Count returns how many records ended with outcome o.
func (s *Stats) Count(o Outcome) int {
	if o < 0 || o >= outcomeCount {
		return 0
	}
	return s.outcomes[o]
}

// Skipped returns the number of records with a skipped_* outcome.
func (s *Stats) Skipped() int {
	return s.Count(OutcomeUnresolvedModel) + s.Count(OutcomeNoID) + s.Count(OutcomeError)
}

func (s *Stats) record(o Outcome) {
	s.outcomes[o]++
}

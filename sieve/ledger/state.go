package ledger

// State is where a frame currently lives
type State int

const (
	// Pending frames are still in the dataset and have not failed yet.
	Pending State = iota
	// Errored frames are still in the dataset but failed to load, preprocess
	// or move at least once. They stay eligible for every later step.
	Errored
	// Essential frames were moved to the essentials directory.
	Essential
	// Nonessential frames were moved to the nonessential directory.
	Nonessential
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Errored:
		return "errored"
	case Essential:
		return "essential"
	case Nonessential:
		return "nonessential"
	default:
		return "unknown"
	}
}

// InDataset reports whether a frame in this state is still in the dataset
func (s State) InDataset() bool {
	return s == Pending || s == Errored
}

// Terminal reports whether the state is a final destination
func (s State) Terminal() bool {
	return s == Essential || s == Nonessential
}

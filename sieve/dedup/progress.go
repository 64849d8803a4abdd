package dedup

// Progress receives progress updates from a run. Rendering is up to the caller.
type Progress interface {
	Start(label string, total int)
	Step()
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(string, int) {}
func (noopProgress) Step()             {}
func (noopProgress) Finish()           {}

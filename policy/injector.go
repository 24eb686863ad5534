package policy

// failureBudget counts the A queries still to be answered negatively. It is only
// touched while holding state.mu.
type failureBudget struct {
	remaining int
}

func (f *failureBudget) suppress() bool { return f.remaining > 0 }

func (f *failureBudget) consume() {
	if f.remaining > 0 {
		f.remaining--
	}
}

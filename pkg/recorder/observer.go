package recorder

// Observer receives session notifications. Terminal notifications
// (OnComplete, OnCancelled, and OnError for writer failures) are delivered
// exactly once per session from the session's writer goroutine; observers
// that need another execution context must hand the event off themselves and
// must not block or call Wait.
type Observer interface {
	OnComplete(location string)
	OnCancelled()
	OnSavedToLibrary()
	OnError(err error)
}

// NopObserver ignores every notification. Embed it to implement only the
// callbacks you care about.
type NopObserver struct{}

func (NopObserver) OnComplete(string) {}
func (NopObserver) OnCancelled()      {}
func (NopObserver) OnSavedToLibrary() {}
func (NopObserver) OnError(error)     {}

// ObserverFuncs adapts optional callback functions to Observer.
// Nil fields are skipped.
type ObserverFuncs struct {
	Complete       func(location string)
	Cancelled      func()
	SavedToLibrary func()
	Error          func(err error)
}

func (f ObserverFuncs) OnComplete(location string) {
	if f.Complete != nil {
		f.Complete(location)
	}
}

func (f ObserverFuncs) OnCancelled() {
	if f.Cancelled != nil {
		f.Cancelled()
	}
}

func (f ObserverFuncs) OnSavedToLibrary() {
	if f.SavedToLibrary != nil {
		f.SavedToLibrary()
	}
}

func (f ObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = ObserverFuncs{}
)

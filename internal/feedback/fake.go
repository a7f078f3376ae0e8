package feedback

// Fake records clicks for test assertions.
type Fake struct {
	// Clicks counts calls to Click.
	Clicks int

	// ClickError, if set, will be returned by Click.
	ClickError error
}

// Click records the call.
func (f *Fake) Click() error {
	f.Clicks++
	return f.ClickError
}

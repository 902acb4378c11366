package gpu

// Available reports whether a usable WebGPU adapter and device exist. Tests
// and the CLI backend switch use it to decide between this package and the
// simulated runtime.
func Available() bool {
	_, err := GetContext()
	return err == nil
}

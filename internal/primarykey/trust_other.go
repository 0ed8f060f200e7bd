//go:build !darwin

package primarykey

// Trusted always reports true outside macOS, where no accessibility grant exists.
func Trusted() bool { return true }

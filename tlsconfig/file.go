package tlsconfig

import "os"

// readFile is split out so builder_test.go can't accidentally shadow the
// stdlib call; kept trivial on purpose.
func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

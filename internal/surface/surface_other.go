//go:build !linux && !darwin

package surface

import "fmt"

func createGlobal(Properties) (ID, backing, error) {
	return 0, nil, ErrUnsupported
}

// Only process-local surfaces exist here, so any other ID is unknown.
func lookupGlobal(id ID) (Properties, backing, error) {
	return Properties{}, nil, fmt.Errorf("%w: %d", ErrNotFound, id)
}

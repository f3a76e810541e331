package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type namedCloser struct {
	name  string
	close func() error
}

// closeAll closes in reverse order of acquisition and keeps going on failure
func closeAll(closers []namedCloser) error {
	var result *multierror.Error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", closers[i].name, err))
		}
	}
	return result.ErrorOrNil()
}

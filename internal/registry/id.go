package registry

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewTransportId returns a random id used to tell connections of the same
// user apart in logs.
func NewTransportId() string {
	return gonanoid.Must()
}

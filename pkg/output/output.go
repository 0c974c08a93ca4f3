package output

import (
	"time"

	"github.com/ericogr/envframe/pkg/frame"
	"github.com/ericogr/envframe/pkg/sensor"
)

// Emission is everything one sampling cycle produced. Outputs must not keep
// it past Publish.
type Emission struct {
	Seq       uint8
	Frame     frame.Frame
	Hex       string
	Reading   sensor.Reading
	Timestamp time.Time
}

type Output interface {
	Publish(Emission) error
	Close() error
}

// helper constructors are in subpackages

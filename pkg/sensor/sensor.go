package sensor

import (
	"errors"
	"fmt"
	"time"
)

// Sensor names, in display and publish order.
const (
	Temperature  = "temperature"
	Humidity     = "humidity"
	AmbientLight = "ambient_light"
	Pressure     = "pressure"
)

var Names = []string{Temperature, Humidity, AmbientLight, Pressure}

// Reading is one sample of the four environmental values. A nil field
// means the value was unavailable, which is not the same as zero.
type Reading struct {
	Temperature  *float64  `json:"temperature"`
	Humidity     *float64  `json:"humidity"`
	AmbientLight *float64  `json:"ambient_light"`
	Pressure     *float64  `json:"pressure"`
	Timestamp    time.Time `json:"timestamp"`
}

// Value returns the named value and whether it is present.
func (r Reading) Value(name string) (float64, bool) {
	var p *float64
	switch name {
	case Temperature:
		p = r.Temperature
	case Humidity:
		p = r.Humidity
	case AmbientLight:
		p = r.AmbientLight
	case Pressure:
		p = r.Pressure
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Float returns a pointer to v, for building readings.
func Float(v float64) *float64 { return &v }

type Source interface {
	Read() (Reading, error)
	Close() error
}

// Error is a sensor read fault. Transient faults are worth retrying on the
// next cycle; anything else means the board is gone.
type Error struct {
	Op        string
	Err       error
	Transient bool
}

func (e *Error) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("sensor %s (%s): %v", e.Op, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err carries a transient sensor fault.
func IsTransient(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Transient
}

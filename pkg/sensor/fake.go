package sensor

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Range is a half-open [Min, Max) integer interval.
type Range struct {
	Min, Max int
}

// FakeRanges are illustrative values, not calibrated against a real board.
var FakeRanges = map[string]Range{
	Temperature:  {24, 27},
	Humidity:     {53, 55},
	AmbientLight: {900, 1000},
	Pressure:     {999, 1010},
}

// FakeSensor produces random whole-number readings inside FakeRanges.
// It never reports an absent value.
type FakeSensor struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewFakeSensor(rnd *rand.Rand) *FakeSensor {
	if rnd == nil {
		//nolint:gosec // synthetic data
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	return &FakeSensor{rnd: rnd, now: time.Now}
}

func (f *FakeSensor) Read() (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Reading{
		Temperature:  f.draw(Temperature),
		Humidity:     f.draw(Humidity),
		AmbientLight: f.draw(AmbientLight),
		Pressure:     f.draw(Pressure),
		Timestamp:    f.now(),
	}, nil
}

func (f *FakeSensor) draw(name string) *float64 {
	r := FakeRanges[name]
	return Float(float64(r.Min + f.rnd.IntN(r.Max-r.Min)))
}

func (f *FakeSensor) Close() error { return nil }

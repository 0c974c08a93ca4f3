package sensor

import (
	"math/rand"
	"sync"
	"time"
)

// FakeSource simulates a sensor with plausible indoor values
// (15-30 °C, 30-70 %RH).
type FakeSource struct {
	mu           sync.Mutex
	rng          *rand.Rand
	temperatureC float64
	humidityPct  float64
	fetched      bool
}

func NewFakeSource() *FakeSource {
	return NewFakeSourceSeed(time.Now().UnixNano())
}

// NewFakeSourceSeed returns a FakeSource with a reproducible sequence.
func NewFakeSourceSeed(seed int64) *FakeSource {
	return &FakeSource{rng: rand.New(rand.NewSource(seed))}
}

func (f *FakeSource) Ready() bool { return true }

func (f *FakeSource) Fetch() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.temperatureC = 15 + f.rng.Float64()*15
	f.humidityPct = 30 + f.rng.Float64()*40
	f.fetched = true
	return nil
}

func (f *FakeSource) Get(ch Channel) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.fetched {
		return 0, ErrNotFetched
	}
	switch ch {
	case ChannelTemperature:
		return f.temperatureC, nil
	case ChannelHumidity:
		return f.humidityPct, nil
	}
	return 0, ErrUnknownChannel
}

func (f *FakeSource) Close() error { return nil }

package sensor

// NoSource stands in when no sensor is fitted. It is never ready.
type NoSource struct{}

func (NoSource) Ready() bool                  { return false }
func (NoSource) Fetch() error                 { return ErrNotReady }
func (NoSource) Get(Channel) (float64, error) { return 0, ErrNotReady }
func (NoSource) Close() error                 { return nil }

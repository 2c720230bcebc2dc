package telemetry

import "context"

// Feed binds a Simulator to the consumer chain and base context of the
// process so callers can pause and resume monitoring without knowing either.
type Feed struct {
	ctx     context.Context
	sim     *Simulator
	consume Consumer
}

// NewFeed builds a Feed. Runs started through it end when ctx does.
func NewFeed(ctx context.Context, sim *Simulator, consume Consumer) *Feed {
	return &Feed{ctx: ctx, sim: sim, consume: consume}
}

// Start resumes the simulator.
func (f *Feed) Start() error {
	return f.sim.Start(f.ctx, f.consume)
}

// Stop pauses the simulator.
func (f *Feed) Stop() {
	f.sim.Stop()
}

// Status describes the feed for clients.
type Status struct {
	Running  bool           `json:"running"`
	Interval string         `json:"interval"`
	Sensors  []SensorConfig `json:"sensors"`
}

// Status reports whether the simulator is ticking and what it emits.
func (f *Feed) Status() Status {
	return Status{
		Running:  f.sim.Running(),
		Interval: f.sim.Interval().String(),
		Sensors:  f.sim.Sensors(),
	}
}

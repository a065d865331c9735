package capture

import (
	"NetSentry/internal/model"
	"context"
	"fmt"
	"log"
	"time"
)

// Packet is one emitted observation. Injected marks observations the
// synthetic generator forced into the anomalous branch, carrying the
// pre-sampled score instead of going through the model.
type Packet struct {
	Obs      *model.Observation
	Injected bool
	Score    float64
}

// Source is one open packet source. Packets delivers parsed observations;
// the channel is closed when the source ends or fails. Close must be safe to
// call more than once.
type Source interface {
	Packets() <-chan *model.Observation
	Close()
}

// SourceFactory opens a new Source for an interface. The session tears the
// source down and asks for a fresh one on stalls and capture errors, since
// silent stalls are a known failure mode of long-lived capture handles.
type SourceFactory func(iface string) (Source, error)

// Bounds limits a capture run. Zero values mean unbounded.
type Bounds struct {
	PacketCount int
	Duration    time.Duration
}

// Options configures a Session.
type Options struct {
	Probe         HealthProbe
	Factory       SourceFactory
	ProbeInterval time.Duration
	WaitTimeout   time.Duration
	Bounds        Bounds
	// Synthetic enables the fallback generator when the primary capture
	// mechanism fails to start. Nil (or zero inject rate) means the session
	// goes idle instead of fabricating traffic.
	Synthetic *Generator
	// OnState is invoked on every state transition. May be nil.
	OnState func(State)
}

// Session owns one interface's packet source, including health supervision,
// stall detection, and the synthetic fallback.
type Session struct {
	iface         string
	probe         HealthProbe
	factory       SourceFactory
	probeInterval time.Duration
	waitTimeout   time.Duration
	bounds        Bounds
	synthetic     *Generator
	onState       func(State)

	state State
}

// NewSession creates a capture session for one interface.
func NewSession(iface string, opts Options) *Session {
	probe := opts.Probe
	if probe == nil {
		probe = InterfaceProbe{}
	}
	probeInterval := opts.ProbeInterval
	if probeInterval <= 0 {
		probeInterval = 5 * time.Second
	}
	waitTimeout := opts.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = 5 * time.Minute
	}
	return &Session{
		iface:         iface,
		probe:         probe,
		factory:       opts.Factory,
		probeInterval: probeInterval,
		waitTimeout:   waitTimeout,
		bounds:        opts.Bounds,
		synthetic:     opts.Synthetic,
		onState:       opts.OnState,
		state:         StateDown,
	}
}

// State returns the last state the session transitioned to.
func (s *Session) State() State { return s.state }

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	log.Printf("Capture session %s: %s -> %s", s.iface, s.state, next)
	s.state = next
	if s.onState != nil {
		s.onState(next)
	}
}

// Run drives the capture loop until the bounds are reached, the context is
// cancelled, or the session goes idle. Observations are delivered on out in
// arrival order. Run does not close out.
func (s *Session) Run(ctx context.Context, out chan<- Packet) error {
	emitted := 0
	var deadline <-chan time.Time
	if s.bounds.Duration > 0 {
		timer := time.NewTimer(s.bounds.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		// Wait for the interface to come up.
		if err := s.waitForInterface(ctx); err != nil {
			s.setState(StateStopped)
			return err
		}
		if ctx.Err() != nil {
			s.setState(StateStopped)
			return nil
		}

		s.setState(StateStarting)
		src, err := s.factory(s.iface)
		if err != nil {
			if s.synthetic != nil && s.synthetic.InjectRate > 0 {
				log.Printf("Capture on %s failed to start: %v. Falling back to synthetic generation.", s.iface, err)
				s.setState(StateActive)
				s.synthetic.Run(ctx, s.bounds, out)
				s.setState(StateStopped)
				return nil
			}
			// Synthetic injection is disabled: never fabricate traffic the
			// operator has not asked for.
			log.Printf("Capture on %s failed to start: %v. Synthetic fallback disabled (inject_rate=0), session idle.", s.iface, err)
			s.setState(StateStopped)
			return fmt.Errorf("capture on %s failed to start: %w", s.iface, err)
		}

		done, err := s.capture(ctx, src, out, deadline, &emitted)
		if done {
			return err
		}
	}
}

// waitForInterface blocks until the health probe passes, bounded by the wait
// timeout and cancellable within one probe interval.
func (s *Session) waitForInterface(ctx context.Context) error {
	if s.probe.Up(s.iface) {
		return nil
	}
	s.setState(StateWaiting)
	log.Printf("Interface %s is down or has no address. Waiting for it to come up...", s.iface)

	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(s.waitTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout.C:
			return fmt.Errorf("timeout waiting for interface %s to come up", s.iface)
		case <-ticker.C:
			if s.probe.Up(s.iface) {
				log.Printf("Interface %s is now up.", s.iface)
				return nil
			}
		}
	}
}

// capture runs one source until it needs to be recreated. It returns
// done=true when the session is finished (bounds reached, cancelled, or
// failed), and done=false when the outer loop should recreate the source.
func (s *Session) capture(ctx context.Context, src Source, out chan<- Packet, deadline <-chan time.Time, emitted *int) (bool, error) {
	defer src.Close()
	s.setState(StateActive)

	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()
	packetsSinceProbe := 0

	for {
		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			return true, nil

		case <-deadline:
			log.Printf("Capture on %s reached duration limit.", s.iface)
			s.setState(StateStopped)
			return true, nil

		case <-ticker.C:
			if !s.probe.Up(s.iface) {
				log.Printf("Interface %s went down, pausing capture...", s.iface)
				return false, nil
			}
			if packetsSinceProbe == 0 {
				// Interface reports up but the handle delivered nothing for a
				// full probe interval. Tear down and recreate; restarting the
				// same handle does not recover a silent stall.
				log.Printf("Capture on %s appears stuck, recreating...", s.iface)
				s.setState(StateStuck)
				return false, nil
			}
			packetsSinceProbe = 0

		case obs, ok := <-src.Packets():
			if !ok {
				if !s.probe.Up(s.iface) {
					log.Printf("Capture source on %s ended with interface down.", s.iface)
					return false, nil
				}
				// Capture failed while the interface is confirmed up. Back
				// off one probe interval before recreating so failures do not
				// turn into a retry storm.
				log.Printf("Capture source on %s ended unexpectedly, recreating after backoff...", s.iface)
				s.setState(StateError)
				select {
				case <-ctx.Done():
					s.setState(StateStopped)
					return true, nil
				case <-time.After(s.probeInterval):
				}
				return false, nil
			}

			select {
			case out <- Packet{Obs: obs}:
			case <-ctx.Done():
				s.setState(StateStopped)
				return true, nil
			}
			*emitted++
			packetsSinceProbe++

			if s.bounds.PacketCount > 0 && *emitted >= s.bounds.PacketCount {
				log.Printf("Capture on %s reached packet count limit: %d", s.iface, s.bounds.PacketCount)
				s.setState(StateStopped)
				return true, nil
			}
		}
	}
}

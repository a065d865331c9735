package capture

import (
	"NetSentry/internal/model"
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"
)

// syntheticSafetyCap bounds a fully synthetic run when the operator set
// neither a packet count nor a duration, so an unattended session cannot
// generate forever.
const syntheticSafetyCap = 10

// commonScanPorts are the well-known service ports a scanner walks.
var commonScanPorts = []uint16{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443, 445, 993, 995,
	1433, 1521, 3306, 3389, 5432, 5900, 6379, 8080, 8443, 27017,
}

var tcpServicePorts = []uint16{80, 443, 22, 25, 110, 143, 3306, 5432, 8080}
var udpServicePorts = []uint16{53, 67, 68, 123, 161, 162, 500, 514}

// Generator produces a bounded synthetic traffic stream: 30% of emitted
// observations follow a port-scan pattern, the rest ordinary client/server
// traffic. Independently, any observation may be forced into the anomalous
// branch at InjectRate, carrying a score sampled from [max(threshold,0.9), 1].
type Generator struct {
	InjectRate float64
	Delay      time.Duration
	Threshold  float64

	rng *rand.Rand
}

// NewGenerator creates a synthetic generator seeded from the clock.
func NewGenerator(injectRate float64, delay time.Duration, threshold float64) *Generator {
	return &Generator{
		InjectRate: injectRate,
		Delay:      delay,
		Threshold:  threshold,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run emits synthetic packets on out until the first satisfied bound or
// cancellation. It returns the number of packets emitted.
func (g *Generator) Run(ctx context.Context, bounds Bounds, out chan<- Packet) int {
	limit := bounds.PacketCount
	if limit <= 0 && bounds.Duration <= 0 {
		limit = syntheticSafetyCap
	}

	// Stable host pools for the run, so scans look like repeated probes
	// rather than random noise.
	scanners := g.hostPool("192.168.0.%d", 50, 100, 5)
	normals := g.hostPool("192.168.0.%d", 101, 254, 10)
	targets := g.hostPool("192.168.1.%d", 1, 50, 3)

	start := time.Now()
	emitted := 0
	log.Printf("Synthetic generator started (inject_rate=%.2f)", g.InjectRate)

	for {
		if ctx.Err() != nil {
			return emitted
		}

		obs := g.nextObservation(scanners, normals, targets)
		pkt := Packet{Obs: obs}
		if g.InjectRate > 0 && g.rng.Float64() < g.InjectRate {
			pkt.Injected = true
			pkt.Score = g.injectedScore()
		}

		select {
		case out <- pkt:
		case <-ctx.Done():
			return emitted
		}
		emitted++

		if limit > 0 && emitted >= limit {
			return emitted
		}
		if bounds.Duration > 0 && time.Since(start) >= bounds.Duration {
			return emitted
		}
		if g.Delay > 0 {
			select {
			case <-time.After(g.Delay):
			case <-ctx.Done():
				return emitted
			}
		}
	}
}

func (g *Generator) nextObservation(scanners, normals, targets []string) *model.Observation {
	obs := &model.Observation{
		Timestamp: time.Now(),
		Length:    60 + g.rng.Intn(1441),
	}

	if g.rng.Float64() < 0.3 {
		// Port scan: one scanner walking well-known ports on a target server
		// from a high ephemeral source port.
		obs.Protocol = "TCP"
		obs.SrcIP = scanners[g.rng.Intn(len(scanners))]
		obs.DstIP = targets[g.rng.Intn(len(targets))]
		obs.SrcPort = g.ephemeralPort()
		obs.DstPort = commonScanPorts[g.rng.Intn(len(commonScanPorts))]
		return obs
	}

	// Ordinary client/server traffic, mostly TCP.
	obs.SrcIP = normals[g.rng.Intn(len(normals))]
	obs.DstIP = fmt.Sprintf("192.168.1.%d", 1+g.rng.Intn(254))
	switch g.rng.Intn(5) {
	case 0, 1, 2:
		obs.Protocol = "TCP"
		obs.SrcPort = g.ephemeralPort()
		obs.DstPort = tcpServicePorts[g.rng.Intn(len(tcpServicePorts))]
	case 3:
		obs.Protocol = "UDP"
		obs.SrcPort = g.ephemeralPort()
		obs.DstPort = udpServicePorts[g.rng.Intn(len(udpServicePorts))]
	default:
		obs.Protocol = "ICMP"
	}
	return obs
}

func (g *Generator) ephemeralPort() uint16 {
	return uint16(40000 + g.rng.Intn(65535-40000+1))
}

// injectedScore samples uniformly from [max(threshold, 0.9), 1.0], rounded
// to four decimals.
func (g *Generator) injectedScore() float64 {
	lo := g.Threshold
	if lo < 0.9 {
		lo = 0.9
	}
	score := lo + g.rng.Float64()*(1.0-lo)
	return math.Round(score*10000) / 10000
}

func (g *Generator) hostPool(format string, lo, hi, n int) []string {
	pool := make([]string, n)
	for i := range pool {
		pool[i] = fmt.Sprintf(format, lo+g.rng.Intn(hi-lo+1))
	}
	return pool
}

package capture

import (
	"NetSentry/internal/config"
	"NetSentry/internal/model"
	"fmt"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// LiveSource captures packets from a network interface with libpcap.
type LiveSource struct {
	handle    *pcap.Handle
	out       chan *model.Observation
	closeOnce sync.Once
}

// NewLiveSource opens the interface for live capture and starts parsing
// packets in the background. The returned source's channel is closed when
// the handle dies or the source is closed.
func NewLiveSource(iface string, cfg config.CaptureConfig) (*LiveSource, error) {
	snaplen := cfg.SnapshotLen
	if snaplen <= 0 {
		snaplen = 1600
	}
	handle, err := pcap.OpenLive(iface, snaplen, cfg.Promiscuous, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("error opening device %s: %w", iface, err)
	}
	if cfg.Filter != "" {
		if err := handle.SetBPFFilter(cfg.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF filter: %w", err)
		}
	}

	s := &LiveSource{
		handle: handle,
		out:    make(chan *model.Observation, 100),
	}
	go s.run()
	return s, nil
}

func (s *LiveSource) run() {
	defer close(s.out)
	packetSource := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	for packet := range packetSource.Packets() {
		obs, err := ParsePacket(packet)
		if err != nil {
			continue // Skip non-IP packets.
		}
		s.out <- obs
	}
}

// Packets implements Source.
func (s *LiveSource) Packets() <-chan *model.Observation { return s.out }

// Close implements Source. Closing the pcap handle ends the capture loop.
func (s *LiveSource) Close() {
	s.closeOnce.Do(func() {
		s.handle.Close()
	})
}

// LiveFactory returns a SourceFactory that opens live captures with the
// given capture settings.
func LiveFactory(cfg config.CaptureConfig) SourceFactory {
	return func(iface string) (Source, error) {
		return NewLiveSource(iface, cfg)
	}
}

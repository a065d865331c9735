package capture

import (
	"NetSentry/internal/model"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// FileSource replays packets from a pcap file through the same pipeline as a
// live capture.
type FileSource struct {
	handle    *pcap.Handle
	out       chan *model.Observation
	closeOnce sync.Once
}

// NewFileSource opens a pcap file for offline analysis.
func NewFileSource(path string) (*FileSource, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, err
	}
	s := &FileSource{
		handle: handle,
		out:    make(chan *model.Observation, 100),
	}
	go s.run()
	return s, nil
}

func (s *FileSource) run() {
	defer close(s.out)
	packetSource := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	for packet := range packetSource.Packets() {
		obs, err := ParsePacket(packet)
		if err != nil {
			// Unsupported packet types and corrupt data are skipped, not fatal.
			log.Printf("Error parsing packet: %v", err)
			continue
		}
		s.out <- obs
	}
}

// Packets implements Source.
func (s *FileSource) Packets() <-chan *model.Observation { return s.out }

// Close implements Source.
func (s *FileSource) Close() {
	s.closeOnce.Do(func() {
		s.handle.Close()
	})
}

// Replay feeds an entire pcap file through out, honoring the same bounds as
// a live session. It returns the number of packets emitted.
func Replay(ctx context.Context, path string, bounds Bounds, out chan<- Packet) (int, error) {
	src, err := NewFileSource(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pcap file: %w", err)
	}
	defer src.Close()

	start := time.Now()
	emitted := 0
	for obs := range src.Packets() {
		select {
		case out <- Packet{Obs: obs}:
		case <-ctx.Done():
			return emitted, nil
		}
		emitted++
		if bounds.PacketCount > 0 && emitted >= bounds.PacketCount {
			break
		}
		if bounds.Duration > 0 && time.Since(start) >= bounds.Duration {
			break
		}
	}
	return emitted, nil
}

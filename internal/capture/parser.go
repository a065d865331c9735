package capture

import (
	"NetSentry/internal/model"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParsePacket decodes a captured packet into an Observation. Non-IPv4
// packets and transport layers other than TCP/UDP/ICMP are rejected.
func ParsePacket(packet gopacket.Packet) (*model.Observation, error) {
	obs := &model.Observation{
		Timestamp: time.Now(),
		Length:    len(packet.Data()),
	}
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		obs.Timestamp = meta.Timestamp
	}

	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return nil, fmt.Errorf("not an IPv4 packet")
	}
	ip := l.(*layers.IPv4)
	obs.SrcIP = ip.SrcIP.String()
	obs.DstIP = ip.DstIP.String()

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		obs.Protocol = "TCP"
		obs.SrcPort = uint16(tcp.SrcPort)
		obs.DstPort = uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		obs.Protocol = "UDP"
		obs.SrcPort = uint16(udp.SrcPort)
		obs.DstPort = uint16(udp.DstPort)
	} else if packet.Layer(layers.LayerTypeICMPv4) != nil {
		obs.Protocol = "ICMP"
	} else {
		return nil, fmt.Errorf("not a TCP, UDP or ICMP packet")
	}

	return obs, nil
}

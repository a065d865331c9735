package capture

import "net"

// HealthProbe reports whether an interface is administratively up and able to
// carry traffic. Injected so the session state machine can be tested without
// real network I/O.
type HealthProbe interface {
	Up(name string) bool
}

// InterfaceProbe checks the kernel's view of the interface: it must exist,
// be up, and have at least one address.
type InterfaceProbe struct{}

// Up implements HealthProbe.
func (InterfaceProbe) Up(name string) bool {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return false
	}
	if iface.Flags&net.FlagUp == 0 {
		return false
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return false
	}
	return len(addrs) > 0
}

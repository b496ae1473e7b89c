package network

import (
	"fmt"
	"net"
	"strings"
	"sync"
)

// Rotator hands out local bind addresses round-robin.
type Rotator struct {
	mu    sync.Mutex
	addrs []*net.TCPAddr
	next  int
}

// NewRotator resolves a comma-separated list of IP addresses or interface names.
func NewRotator(bindAddresses string) (*Rotator, error) {
	r := &Rotator{}
	for _, part := range strings.Split(bindAddresses, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := resolveBindAddr(part)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bind address '%s': %w", part, err)
		}
		r.addrs = append(r.addrs, addr)
	}
	if len(r.addrs) == 0 {
		return nil, fmt.Errorf("no usable addresses could be resolved from '%s'", bindAddresses)
	}
	return r, nil
}

// Next returns the address to bind the next connection to.
func (r *Rotator) Next() *net.TCPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr := r.addrs[r.next]
	r.next = (r.next + 1) % len(r.addrs)
	return addr
}

// Len is the number of configured addresses.
func (r *Rotator) Len() int {
	return len(r.addrs)
}

// resolveBindAddr accepts an IP address or the name of a network interface.
// Interfaces resolve to their first non-loopback IPv4 address.
func resolveBindAddr(addrOrInterface string) (*net.TCPAddr, error) {
	if ip := net.ParseIP(addrOrInterface); ip != nil {
		return &net.TCPAddr{IP: ip}, nil
	}

	iface, err := net.InterfaceByName(addrOrInterface)
	if err != nil {
		return nil, fmt.Errorf("failed to find network interface '%s': %w", addrOrInterface, err)
	}
	addrs, err := iface.Addrs()
	if err != nil || len(addrs) == 0 {
		return nil, fmt.Errorf("interface '%s' has no usable addresses", addrOrInterface)
	}

	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}
		if ip != nil && ip.To4() != nil && !ip.IsLoopback() {
			return &net.TCPAddr{IP: ip}, nil
		}
	}
	return nil, fmt.Errorf("no usable IPv4 address found for interface '%s'", addrOrInterface)
}

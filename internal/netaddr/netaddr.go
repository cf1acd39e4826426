// Package netaddr finds the address other LAN devices should use to reach
// this host. It is only used for the startup banner.
package netaddr

import (
	"fmt"
	"net"

	"github.com/jackpal/gateway"
)

const Loopback = "127.0.0.1"

// probeTarget is never actually contacted: connecting a UDP socket sends
// nothing, it only makes the kernel pick a route and source address.
const probeTarget = "10.255.255.255:1"

// Outbound returns the host's outward-facing IPv4 address. It tries a
// connectionless UDP probe, then the interface on the default gateway's
// subnet, and falls back to loopback.
func Outbound() string {
	if ip, err := udpProbe(probeTarget); err == nil {
		return ip
	}
	if ip, err := gatewayLocalIP(); err == nil {
		return ip
	}
	return Loopback
}

func udpProbe(target string) (string, error) {
	conn, err := net.Dial("udp4", target)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return "", fmt.Errorf("no local address for %s", target)
	}
	return addr.IP.String(), nil
}

func gatewayLocalIP() (string, error) {
	gw, err := gateway.DiscoverGateway()
	if err != nil {
		return "", fmt.Errorf("discover gateway: %w", err)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if ip := matchSubnet(addrs, gw); ip != nil {
			return ip.String(), nil
		}
	}
	return "", fmt.Errorf("no local IPv4 address on the subnet of gateway %s", gw)
}

// matchSubnet returns the global unicast IPv4 address in addrs whose network
// contains gw.
func matchSubnet(addrs []net.Addr, gw net.IP) net.IP {
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil || !ip4.IsGlobalUnicast() {
			continue
		}
		if ipnet.Contains(gw) {
			return ip4
		}
	}
	return nil
}

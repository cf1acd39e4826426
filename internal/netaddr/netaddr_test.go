package netaddr

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func cidr(t *testing.T, s string) *net.IPNet {
	t.Helper()
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	n.IP = ip
	return n
}

func TestMatchSubnet(t *testing.T) {
	addrs := []net.Addr{
		cidr(t, "127.0.0.1/8"),
		cidr(t, "fe80::1/64"),
		cidr(t, "10.0.0.5/24"),
		cidr(t, "192.168.1.23/24"),
	}
	got := matchSubnet(addrs, net.ParseIP("192.168.1.1"))
	assert.Equal(t, "192.168.1.23", got.String())

	assert.Nil(t, matchSubnet(addrs, net.ParseIP("172.16.0.1")))
}

func TestOutboundAlwaysReturnsAnAddress(t *testing.T) {
	ip := net.ParseIP(Outbound())
	assert.NotNil(t, ip)
	assert.NotNil(t, ip.To4())
}

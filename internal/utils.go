package internal

import (
	"errors"
	"net"
)

var ErrNoServerIpNet = errors.New("ipnet could not be found")

// ServerIpNet returns the first non-loopback IPv4 network of an interface
// that is up. Analytics are counted per server under this address.
func ServerIpNet() (net.IPNet, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.IPNet{}, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			return net.IPNet{}, err
		}
		if ipnet, ok := firstIPv4(addrs); ok {
			return ipnet, nil
		}
	}

	return net.IPNet{}, ErrNoServerIpNet
}

func firstIPv4(addrs []net.Addr) (net.IPNet, bool) {
	for _, addr := range addrs {
		var ip net.IP
		mask := net.CIDRMask(32, 32)

		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
			mask = v.Mask
		case *net.IPAddr:
			ip = v.IP
		}

		if ip != nil && ip.To4() != nil && !ip.IsLoopback() {
			return net.IPNet{IP: ip, Mask: mask}, true
		}
	}
	return net.IPNet{}, false
}

// IpNetFromAddr turns a host:port address into a /32 network.
func IpNetFromAddr(addr string) (net.IPNet, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.IPNet{}, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return net.IPNet{}, errors.New("invalid ip: " + host)
	}
	return net.IPNet{IP: ip, Mask: net.CIDRMask(32, 32)}, nil
}

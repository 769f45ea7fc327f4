package system

import (
	"fmt"
	"net"
	"strings"
)

// LocalIPv4 returns the first non-loopback IPv4 address of an interface that
// is up, or "" when there is none.
func LocalIPv4() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if ip := firstIPv4(addrs); ip != "" {
			return ip, nil
		}
	}
	return "", nil
}

func firstIPv4(addrs []net.Addr) string {
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4.String()
		}
	}
	return ""
}

// APIURL builds the trigger endpoint URL for a listen address. An empty
// host in listen is replaced with ip, or localhost when ip is empty.
func APIURL(listen, ip string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = strings.TrimSpace(listen), ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = ip
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" || port == "80" {
		return fmt.Sprintf("http://%s/api/v1/confetti", hostLiteral(host))
	}
	return fmt.Sprintf("http://%s/api/v1/confetti", net.JoinHostPort(host, port))
}

func hostLiteral(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

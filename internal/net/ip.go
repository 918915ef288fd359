package net

import (
	"fmt"
	"net"

	"CanvasBoard/internal/logging"
)

// OutgoingIP finds the preferred local IP address to put in share links.
func OutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// Offline networks: fall back to the interfaces.
		return firstIPv4().String()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	logging.Logger().Warn("no LAN address found, share link uses loopback")
	return net.IPv4(127, 0, 0, 1)
}

// ShareURL is the websocket address viewers connect to.
func ShareURL(host string, port int) string {
	return fmt.Sprintf("ws://%s/ws", net.JoinHostPort(host, fmt.Sprint(port)))
}

package net

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_canvasboard._tcp"

// Advertise announces a share server on port to the local network. Close
// the returned server to stop.
func Advertise(port int, boardName string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"CanvasBoard", "board=" + boardName}
	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// query is the mDNS lookup Browse runs.
var query = mdns.Query

// Found is a share server seen on the network.
type Found struct {
	Board string
	Addr  string
	URL   string
}

// Browse looks for share servers for timeout and calls found with each.
// Servers answering more than once are reported once.
func Browse(timeout time.Duration, found func(Found)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for e := range entries {
			f, ok := entryFound(e)
			if !ok || seen[f.Addr] {
				continue
			}
			seen[f.Addr] = true
			found(f)
		}
	}()
	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := query(params)
	close(entries)
	<-done
	return err
}

func entryFound(e *mdns.ServiceEntry) (Found, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Found{}, false
	}
	f := Found{
		Addr: fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port),
		URL:  ShareURL(e.AddrV4.String(), e.Port),
	}
	for _, field := range e.InfoFields {
		if name, ok := strings.CutPrefix(field, "board="); ok {
			f.Board = name
		}
	}
	return f, true
}

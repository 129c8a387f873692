package client

import (
	"context"
	"io"
	stdlog "log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
)

// ServiceName is the mDNS service OpenRGB servers may advertise.
const ServiceName = "_openrgb._tcp"

// Discover looks up OpenRGB servers on the local network and returns their
// host:port addresses. It returns what it found when timeout passes or ctx
// ends, whichever is first.
func Discover(ctx context.Context, timeout time.Duration) ([]string, error) {
	stdlog.SetOutput(io.Discard)
	defer stdlog.SetOutput(os.Stderr)

	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(ServiceName)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	done := make(chan error, 1)
	go func() {
		done <- mdns.Query(params)
	}()

	seen := map[string]bool{}
	found := []string{}
	add := func(entry *mdns.ServiceEntry) {
		if address, ok := entryAddress(entry); ok && !seen[address] {
			seen[address] = true
			found = append(found, address)
		}
	}
	for {
		select {
		case entry := <-entries:
			add(entry)
		case err := <-done:
			for {
				select {
				case entry := <-entries:
					add(entry)
				default:
					if err != nil {
						return found, errors.Wrap(err, "mdns lookup failed")
					}
					return found, nil
				}
			}
		case <-ctx.Done():
			return found, ctx.Err()
		}
	}
}

func entryAddress(entry *mdns.ServiceEntry) (string, bool) {
	if entry == nil || entry.Port == 0 {
		return "", false
	}
	port := strconv.Itoa(entry.Port)
	switch {
	case entry.AddrV4 != nil:
		return net.JoinHostPort(entry.AddrV4.String(), port), true
	case entry.AddrV6 != nil:
		return net.JoinHostPort(entry.AddrV6.String(), port), true
	case entry.Host != "":
		return net.JoinHostPort(entry.Host, port), true
	}
	return "", false
}

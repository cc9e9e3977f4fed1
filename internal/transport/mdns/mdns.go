// Package mdns is the grandcat/zeroconf reference implementation of
// transport.Advertiser (spec.md §4.8/§6), grounded on
// peder1981-p2p-irc's internal/discovery startMDNS/performBrowse idiom.
package mdns

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"meshpeer/internal/transport"
)

const (
	domain       = "local."
	browseWindow = 2 * time.Second
)

// Advertiser registers this node under "_<serviceName>._tcp." and
// browses for others registered under the same type.
type Advertiser struct {
	serviceName string
	port        int
	hostName    string

	mu     sync.Mutex
	server *zeroconf.Server
}

// New returns an Advertiser for serviceName on port, instanced under
// hostName (already normalized per NormalizeHostname).
func New(serviceName string, port int, hostName string) *Advertiser {
	return &Advertiser{serviceName: serviceName, port: port, hostName: hostName}
}

// NormalizeHostname maps '.' and '_' in raw to '-', strips a trailing
// '-', and appends the ".local." suffix (spec.md §6).
func NormalizeHostname(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		if r == '.' || r == '_' {
			return '-'
		}
		return r
	}, raw)
	mapped = strings.TrimRight(mapped, "-")
	return mapped + ".local."
}

// serviceType returns the registration type for serviceName.
func serviceType(serviceName string) string {
	return fmt.Sprintf("_%s._tcp", serviceName)
}

// Start registers the mDNS service. Idempotent: a second Start while
// already running is a no-op.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return nil
	}

	server, err := zeroconf.Register(a.hostName, serviceType(a.serviceName), domain, a.port, nil, nil)
	if err != nil {
		return fmt.Errorf("mdns: register failed: %w", err)
	}
	a.server = server
	return nil
}

// Stop unregisters the mDNS service. Idempotent.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return nil
	}
	a.server.Shutdown()
	a.server = nil
	return nil
}

// Running reports whether the advertiser is currently registered.
func (a *Advertiser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// Browse performs one bounded-time mDNS browse, returning every entry
// seen. Zeroconf resolves addresses as part of browsing, so every
// returned entry carries a non-empty Host unless it timed out before
// resolution completed, in which case Host is left empty.
func (a *Advertiser) Browse() ([]transport.BrowseResult, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns: new resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), browseWindow)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var results []transport.BrowseResult
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if entry.Instance == a.hostName {
				continue
			}
			host := ""
			if len(entry.AddrIPv4) > 0 {
				host = entry.AddrIPv4[0].String()
			}
			results = append(results, transport.BrowseResult{
				Name: entry.Instance,
				Host: host,
				Port: uint16(entry.Port),
			})
		}
	}()

	if err := resolver.Browse(ctx, serviceType(a.serviceName), domain, entries); err != nil {
		return nil, fmt.Errorf("mdns: browse failed: %w", err)
	}

	<-ctx.Done()
	<-done
	return results, nil
}

// Resolve triggers a fresh browse targeted at re-discovering name.
// zeroconf resolves addresses inline during Browse, so there is no
// separate per-name resolution step to drive; this re-runs the same
// bounded browse as a best-effort refresh.
func (a *Advertiser) Resolve(name string) error {
	_, err := a.Browse()
	return err
}

// LocalHostname returns this node's registered FQDN.
func (a *Advertiser) LocalHostname() (string, error) {
	return a.hostName, nil
}

package netcheck

import (
	"context"
	"net"
	"strings"
	"time"

	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/hugo/termpresence/internal/config"
	"github.com/hugo/termpresence/pkg/integrations/common"
)

// sshPorts are the remote ports that count as SSH evidence. Anything else
// the client keeps open (sync, telemetry) must not be mistaken for a session.
var sshPorts = map[uint32]bool{
	22:   true,
	2222: true,
	2200: true,
	2022: true,
}

// dnsTimeout bounds the optional reverse lookup so a dead resolver cannot
// stall the poll cadence beyond one tick.
const dnsTimeout = 1500 * time.Millisecond

// Evidence is the result of a connection check for one poll tick. RemoteIP
// is kept for label resolution only and is never surfaced unless the privacy
// configuration explicitly allows it.
type Evidence struct {
	HasConnection bool
	RemoteIP      string
	RemotePort    uint32
	Hostname      string // reverse-DNS name, empty when disallowed or unresolved
}

// Checker inspects the TCP connections owned by the monitored application.
// Lookup failures never escape: they degrade to "no connection".
type Checker struct {
	appHint         string
	allowReverseDNS bool

	// Seams for tests.
	connsForPid func(pid int32) ([]gnet.ConnectionStat, error)
	findPids    func() []int32
	lookupAddr  func(ctx context.Context, ip string) ([]string, error)
}

// New builds a Checker from the loaded configuration.
func New(cfg *config.Config) *Checker {
	c := &Checker{
		appHint:         cfg.AppName,
		allowReverseDNS: cfg.Privacy.AllowReverseDNS,
		connsForPid: func(pid int32) ([]gnet.ConnectionStat, error) {
			return gnet.ConnectionsPid("tcp", pid)
		},
		lookupAddr: net.DefaultResolver.LookupAddr,
	}
	c.findPids = func() []int32 {
		return common.FindProcesses(c.appHint)
	}
	return c
}

// Check looks for an established SSH-port connection owned by pid. The
// monitored application is usually multi-process, so when pid itself owns no
// such connection the remaining matching processes are consulted too.
func (c *Checker) Check(pid int32) Evidence {
	pids := make([]int32, 0, 4)
	if pid > 0 {
		pids = append(pids, pid)
	}
	for _, p := range c.findPids() {
		if p != pid {
			pids = append(pids, p)
		}
	}

	for _, p := range pids {
		conns, err := c.connsForPid(p)
		if err != nil {
			continue
		}
		for _, conn := range conns {
			if conn.Status != "ESTABLISHED" {
				continue
			}
			if conn.Raddr.IP == "" || !sshPorts[conn.Raddr.Port] {
				continue
			}
			return Evidence{
				HasConnection: true,
				RemoteIP:      conn.Raddr.IP,
				RemotePort:    conn.Raddr.Port,
				Hostname:      c.resolve(conn.Raddr.IP),
			}
		}
	}

	return Evidence{}
}

// resolve reverse-resolves ip when allowed, returning "" on any failure.
func (c *Checker) resolve(ip string) string {
	if !c.allowReverseDNS || ip == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), dnsTimeout)
	defer cancel()

	names, err := c.lookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}

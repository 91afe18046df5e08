package classifier

import (
	"net"
	"testing"

	"github.com/hugo/termpresence/internal/config"
	"github.com/hugo/termpresence/internal/models"
	"github.com/hugo/termpresence/internal/netcheck"
	"github.com/hugo/termpresence/pkg/window"
)

func noConnection(pid int32) netcheck.Evidence {
	return netcheck.Evidence{}
}

func liveConnection(ip, hostname string) LookupFunc {
	return func(pid int32) netcheck.Evidence {
		return netcheck.Evidence{
			HasConnection: true,
			RemoteIP:      ip,
			RemotePort:    22,
			Hostname:      hostname,
		}
	}
}

func TestClassifyClosed(t *testing.T) {
	c := New(config.Default())
	got := c.Classify(nil, liveConnection("203.0.113.10", ""))
	if got.Kind != models.Closed {
		t.Errorf("Classify(nil) = %v, want closed", got)
	}
}

func TestClassifyViewTable(t *testing.T) {
	c := New(config.Default())

	tests := []struct {
		name string
		snap window.Snapshot
		want models.Kind
	}{
		{"sftp browser", window.Snapshot{Title: "SFTP Browser"}, models.SFTP},
		{"files view", window.Snapshot{Title: "Termius - Files"}, models.SFTP},
		{"hosts list", window.Snapshot{Title: "Termius - Hosts"}, models.HostsList},
		{"groups", window.Snapshot{Tab: "Groups"}, models.HostsList},
		{"settings", window.Snapshot{Title: "Termius - Settings"}, models.Settings},
		{"keychain", window.Snapshot{Title: "Keychain"}, models.Settings},
		{"port forwarding", window.Snapshot{Title: "Port Forwarding"}, models.Settings},
		{"known hosts goes to settings", window.Snapshot{Title: "Known Hosts"}, models.Settings},
		{"snippets", window.Snapshot{Title: "Termius - Snippets"}, models.Snippets},
		{"logs", window.Snapshot{Title: "Termius - Logs"}, models.Logs},
		{"bare app title", window.Snapshot{Title: "Termius", PID: 5}, models.Idle},
		{"empty snapshot fields", window.Snapshot{PID: 5}, models.Idle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(&tt.snap, noConnection)
			if got.Kind != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.snap, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyTableOrder(t *testing.T) {
	c := New(config.Default())

	// Text matching both the SFTP and hosts rules resolves to the earlier
	// rule in the table.
	snap := &window.Snapshot{Title: "SFTP - Hosts"}
	if got := c.Classify(snap, noConnection); got.Kind != models.SFTP {
		t.Errorf("Classify(ambiguous) = %v, want sftp (table order)", got.Kind)
	}
}

func TestClassifySSHConfirmed(t *testing.T) {
	c := New(config.Default())

	snap := &window.Snapshot{Title: "prod-db-01 — Terminal", PID: 123}
	got := c.Classify(snap, liveConnection("203.0.113.10", "prod-db-01"))

	if got.Kind != models.SSHSession {
		t.Fatalf("Classify() = %v, want ssh session", got.Kind)
	}
	if got.Host != "prod-db-01" {
		t.Errorf("Host = %q, want prod-db-01 (UI label preferred)", got.Host)
	}
}

func TestClassifySSHNeverWithoutConnection(t *testing.T) {
	c := New(config.Default())

	snaps := []window.Snapshot{
		{Title: "prod-db-01 — Terminal", PID: 123},
		{Tab: "deploy@web-42", PID: 9},
		{Title: "web-42 - Termius"},
	}
	for _, snap := range snaps {
		got := c.Classify(&snap, noConnection)
		if got.Kind == models.SSHSession {
			t.Errorf("Classify(%+v) claimed SSH session without live connection", snap)
		}
	}
}

func TestClassifySSHLabelPrivacy(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		snap     window.Snapshot
		evidence LookupFunc
		wantHost string
	}{
		{
			name:     "ui label preferred",
			mutate:   func(c *config.Config) {},
			snap:     window.Snapshot{Tab: "deploy@web-42", PID: 1},
			evidence: liveConnection("203.0.113.10", "other-name"),
			wantHost: "deploy@web-42",
		},
		{
			name:     "reverse dns when ui label off",
			mutate:   func(c *config.Config) { c.Privacy.PreferUILabel = false },
			snap:     window.Snapshot{Tab: "deploy@web-42", PID: 1},
			evidence: liveConnection("203.0.113.10", "web-42.internal"),
			wantHost: "web-42.internal",
		},
		{
			name:     "nothing resolvable stays generic",
			mutate:   func(c *config.Config) { c.Privacy.PreferUILabel = false },
			snap:     window.Snapshot{Tab: "deploy@web-42", PID: 1},
			evidence: liveConnection("203.0.113.10", ""),
			wantHost: "",
		},
		{
			name:     "raw ip only when exposed",
			mutate: func(c *config.Config) {
				c.Privacy.PreferUILabel = false
				c.Privacy.ExposeIPInPresence = true
			},
			snap:     window.Snapshot{Tab: "deploy@web-42", PID: 1},
			evidence: liveConnection("203.0.113.10", ""),
			wantHost: "203.0.113.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			c := New(cfg)

			got := c.Classify(&tt.snap, tt.evidence)
			if got.Kind != models.SSHSession {
				t.Fatalf("Classify() = %v, want ssh session", got.Kind)
			}
			if got.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", got.Host, tt.wantHost)
			}
		})
	}
}

func TestClassifyNeverLeaksRawIP(t *testing.T) {
	// With default privacy (no IP exposure) the label must never be an IP
	// literal, whatever the evidence contains.
	cfg := config.Default()
	cfg.Privacy.PreferUILabel = false
	c := New(cfg)

	snap := &window.Snapshot{Tab: "deploy@web-42", PID: 1}
	got := c.Classify(snap, liveConnection("203.0.113.10", ""))

	if ip := net.ParseIP(got.Host); ip != nil {
		t.Errorf("Host = %q is a raw IP literal with expose_ip_in_presence=false", got.Host)
	}
}

func TestClassifyNeverLeaksRawIPFromUILabel(t *testing.T) {
	// An address shown in the UI (the user connected to a raw IP) is still
	// a raw IP: with default privacy it must not surface as the label, even
	// though prefer_ui_label is on.
	c := New(config.Default())

	for _, tab := range []string{"fe80::1", "2001:db8::beef"} {
		snap := &window.Snapshot{Tab: tab, PID: 7}
		got := c.Classify(snap, liveConnection("203.0.113.10", ""))

		if got.Kind != models.SSHSession {
			t.Errorf("Classify(tab=%q) = %v, want ssh session", tab, got.Kind)
		}
		if ip := net.ParseIP(got.Host); ip != nil {
			t.Errorf("Host = %q is a raw IP literal with expose_ip_in_presence=false", got.Host)
		}
	}
}

func TestClassifyIPLabelAllowedWhenExposed(t *testing.T) {
	cfg := config.Default()
	cfg.Privacy.ExposeIPInPresence = true
	c := New(cfg)

	snap := &window.Snapshot{Tab: "2001:db8::beef", PID: 7}
	got := c.Classify(snap, liveConnection("203.0.113.10", ""))

	if got.Host != "203.0.113.10" {
		t.Errorf("Host = %q, want the connection address when exposure is enabled", got.Host)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(config.Default())
	snap := &window.Snapshot{Title: "prod-db-01 — Terminal", PID: 123}
	lookup := liveConnection("203.0.113.10", "prod-db-01")

	first := c.Classify(snap, lookup)
	second := c.Classify(snap, lookup)
	if first != second {
		t.Errorf("Classify not deterministic: %v then %v", first, second)
	}
}

func TestHostLabel(t *testing.T) {
	tests := []struct {
		name string
		snap window.Snapshot
		want string
	}{
		{"tab label", window.Snapshot{Tab: "deploy@web-42"}, "deploy@web-42"},
		{"generic tab skipped", window.Snapshot{Tab: "SFTP", Title: "prod-db-01 - Termius"}, "prod-db-01"},
		{"title split em dash", window.Snapshot{Title: "prod-db-01 — Terminal"}, "prod-db-01"},
		{"title split hyphen", window.Snapshot{Title: "Termius - web-42"}, "web-42"},
		{"all generic segments", window.Snapshot{Title: "Termius - Settings"}, ""},
		{"view keyword rejected", window.Snapshot{Tab: "SFTP Browser"}, ""},
		{"digits only rejected", window.Snapshot{Tab: "12345"}, ""},
		{"no separator no tab", window.Snapshot{Title: "Termius"}, ""},
		{"overlong label rejected", window.Snapshot{Tab: string(make([]byte, 80))}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HostLabel(&tt.snap); got != tt.want {
				t.Errorf("HostLabel(%+v) = %q, want %q", tt.snap, got, tt.want)
			}
		})
	}
}

func TestIsGenericLabel(t *testing.T) {
	generic := []string{"", "  ", "Termius", "SFTP", "new tab", "ROOT"}
	for _, s := range generic {
		if !IsGenericLabel(s) {
			t.Errorf("IsGenericLabel(%q) = false, want true", s)
		}
	}

	specific := []string{"prod-db-01", "deploy@web-42", "backup.internal"}
	for _, s := range specific {
		if IsGenericLabel(s) {
			t.Errorf("IsGenericLabel(%q) = true, want false", s)
		}
	}
}

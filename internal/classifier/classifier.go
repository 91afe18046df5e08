package classifier

import (
	"net"
	"strings"
	"unicode"

	"github.com/hugo/termpresence/internal/config"
	"github.com/hugo/termpresence/internal/models"
	"github.com/hugo/termpresence/internal/netcheck"
	"github.com/hugo/termpresence/pkg/window"
)

// Rule maps view text to an activity kind. Except entries veto a match so a
// later, more specific rule can claim the text (e.g. "known hosts" belongs
// to Settings, not the hosts list).
type Rule struct {
	Kind       models.Kind
	Substrings []string
	Except     []string
}

// DefaultRules is the ordered view-matching table. Order is authoritative:
// the first matching rule wins.
var DefaultRules = []Rule{
	{Kind: models.SFTP, Substrings: []string{"sftp", "files"}},
	{Kind: models.HostsList, Substrings: []string{"hosts", "host list", "groups", "new host"}, Except: []string{"known hosts"}},
	{Kind: models.Settings, Substrings: []string{"settings", "account", "preferences", "keychain", "port forwarding", "known hosts"}},
	{Kind: models.Snippets, Substrings: []string{"snippets"}},
	{Kind: models.Logs, Substrings: []string{"logs"}},
}

// genericLabels are UI chrome fragments that never identify a host.
var genericLabels = map[string]bool{
	"termius": true, "live": true, "close": true, "minimize": true,
	"maximize": true, "settings": true, "search": true, "new tab": true,
	"new host": true, "sftp": true, "files": true, "terminal": true,
	"ssh": true, "hosts": true, "groups": true, "local": true,
	"actions": true, "filter": true, "root": true, "snippets": true,
	"logs": true,
}

// viewKeywords disqualify a text fragment from being a host label even when
// it is not an exact generic match ("SFTP Browser" names a view, not a host).
var viewKeywords = []string{
	"sftp", "files", "terminal", "ssh", "settings", "hosts",
	"groups", "local", "actions", "filter", "root", "snippets",
	"logs",
}

// IsGenericLabel reports whether text is UI chrome rather than a host label.
func IsGenericLabel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "" || genericLabels[t]
}

// LookupFunc supplies connection evidence for a PID. It is only invoked for
// SSH-shaped snapshots.
type LookupFunc func(pid int32) netcheck.Evidence

// Classifier turns window snapshots into activities. It is pure: the same
// snapshot and evidence always classify the same way.
type Classifier struct {
	rules   []Rule
	privacy config.Privacy
}

// New builds a classifier using the default rule table and the configured
// privacy flags.
func New(cfg *config.Config) *Classifier {
	return &Classifier{
		rules:   DefaultRules,
		privacy: cfg.Privacy,
	}
}

// Classify maps a snapshot to an activity. An SSH-shaped view is only
// reported as an SSH session when lookup confirms a live connection; an
// unconfirmed claim falls through to the view table and ultimately Idle.
func (c *Classifier) Classify(snap *window.Snapshot, lookup LookupFunc) models.Activity {
	if snap == nil {
		return models.Activity{Kind: models.Closed}
	}

	if label := HostLabel(snap); label != "" && lookup != nil {
		ev := lookup(snap.PID)
		if ev.HasConnection {
			return models.Activity{
				Kind: models.SSHSession,
				Host: c.hostText(label, ev),
			}
		}
		// No live connection: never claim an SSH session on text alone.
	}

	text := strings.ToLower(strings.TrimSpace(snap.Tab + " " + snap.Title))
	for _, rule := range c.rules {
		if rule.matches(text) {
			return models.Activity{Kind: rule.Kind}
		}
	}

	return models.Activity{Kind: models.Idle}
}

func (r Rule) matches(text string) bool {
	for _, ex := range r.Except {
		if strings.Contains(text, ex) {
			return false
		}
	}
	for _, sub := range r.Substrings {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

// hostText picks the display label for a confirmed SSH session: UI label
// when preferred and present, then reverse-DNS name, then the raw address
// only when explicitly allowed, otherwise empty (generic text downstream).
func (c *Classifier) hostText(uiLabel string, ev netcheck.Evidence) string {
	// A UI label that is itself an address (the user connected to a raw
	// IP, IPv6 included) counts as a raw IP and follows the exposure
	// rule below, not the label path.
	if net.ParseIP(uiLabel) != nil {
		uiLabel = ""
	}
	if c.privacy.PreferUILabel && uiLabel != "" {
		return uiLabel
	}
	if ev.Hostname != "" {
		return ev.Hostname
	}
	if c.privacy.ExposeIPInPresence {
		return ev.RemoteIP
	}
	return ""
}

// HostLabel extracts the candidate host label from a snapshot: the tab text
// when usable, otherwise the first usable segment of a separator-split
// window title ("prod-db-01 — Termius").
func HostLabel(snap *window.Snapshot) string {
	if snap == nil {
		return ""
	}

	if l := cleanLabel(snap.Tab); l != "" {
		return l
	}

	for _, sep := range []string{" — ", " – ", " - "} {
		if !strings.Contains(snap.Title, sep) {
			continue
		}
		for _, part := range strings.Split(snap.Title, sep) {
			if l := cleanLabel(part); l != "" {
				return l
			}
		}
		return ""
	}

	return ""
}

// cleanLabel returns the trimmed text when it plausibly names a host, or "".
func cleanLabel(text string) string {
	t := strings.TrimSpace(text)
	if t == "" || len(t) > 60 || IsGenericLabel(t) {
		return ""
	}

	hasAlpha := false
	for _, r := range t {
		if unicode.IsLetter(r) {
			hasAlpha = true
			break
		}
	}
	if !hasAlpha {
		return ""
	}

	low := strings.ToLower(t)
	for _, kw := range viewKeywords {
		if strings.Contains(low, kw) {
			return ""
		}
	}

	return t
}

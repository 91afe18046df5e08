package presence

import (
	"time"

	"github.com/hugo/termpresence/internal/config"
	"github.com/hugo/termpresence/internal/models"
)

// Payload is the broadcaster-facing rendering of an activity.
type Payload struct {
	Details    string
	State      string
	LargeImage string
	LargeText  string
	SmallImage string
	SmallText  string
	Start      int64 // unix seconds; 0 omits the timestamp
}

// Publisher pushes presence payloads to the broadcaster. Publish and Clear
// report failure so the poll loop can retry on the next tick; they must not
// panic or block indefinitely.
type Publisher interface {
	Publish(p Payload) error
	Clear() error
	Close() error
}

// Build renders an activity into the broadcaster payload using the
// configured texts and assets. start is preserved across ticks by the poll
// loop while the activity identity is unchanged.
func Build(act models.Activity, cfg *config.Config, start time.Time) Payload {
	p := Payload{
		LargeImage: cfg.Assets.LargeImage,
		LargeText:  cfg.Assets.LargeText,
	}
	if !start.IsZero() {
		p.Start = start.Unix()
	}

	switch act.Kind {
	case models.SSHSession:
		p.Details = cfg.Text("details_connected")
		if act.Host != "" {
			p.State = "SSH to " + act.Host
		} else {
			p.State = cfg.Text("state_active_ssh")
		}
		p.SmallImage = cfg.Assets.SmallImage
		p.SmallText = "SSH"
	case models.SFTP:
		p.Details = cfg.Text("details_connected")
		p.State = cfg.Text("state_sftp")
	case models.HostsList:
		p.Details = cfg.Text("details_hosts")
		p.State = cfg.Text("state_browsing")
	case models.Settings:
		p.Details = cfg.Text("details_settings")
		p.State = cfg.Text("state_settings")
	case models.Snippets:
		p.Details = cfg.Text("details_snippets")
		p.State = cfg.Text("state_snippets")
	case models.Logs:
		p.Details = cfg.Text("details_logs")
		p.State = cfg.Text("state_logs")
	default:
		p.Details = cfg.Text("details_idle")
		p.State = cfg.Text("state_idle")
	}

	return p
}

package models

// Kind is the coarse activity classified from the Termius window state.
type Kind int

const (
	// Closed means the application is not running.
	Closed Kind = iota
	// Idle means the application is open with nothing recognizable in view.
	Idle
	// SSHSession is a confirmed live SSH connection.
	SSHSession
	// SFTP is the file transfer browser.
	SFTP
	// HostsList is the host/group browser.
	HostsList
	// Settings covers settings, keychain, port forwarding and known hosts views.
	Settings
	// Snippets is the snippet library.
	Snippets
	// Logs is the connection log view.
	Logs
)

func (k Kind) String() string {
	switch k {
	case Closed:
		return "closed"
	case Idle:
		return "idle"
	case SSHSession:
		return "ssh"
	case SFTP:
		return "sftp"
	case HostsList:
		return "hosts"
	case Settings:
		return "settings"
	case Snippets:
		return "snippets"
	case Logs:
		return "logs"
	default:
		return "unknown"
	}
}

// Activity is the classified state for a single poll tick. Host is only set
// for SSHSession and may be empty when privacy settings leave no usable label.
// Activities compare with ==; a host label change is a different activity.
type Activity struct {
	Kind Kind
	Host string
}

func (a Activity) String() string {
	if a.Kind == SSHSession && a.Host != "" {
		return a.Kind.String() + ":" + a.Host
	}
	return a.Kind.String()
}

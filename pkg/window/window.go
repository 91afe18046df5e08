package window

// Snapshot is a single point-in-time read of the monitored application's
// window state. Any field may be missing: an empty Title with a non-zero PID
// means the application is running but its window state is unavailable.
type Snapshot struct {
	Title string // top-level window title
	Tab   string // active tab/view label, when the platform exposes one
	PID   int32  // owning process id, 0 when unknown
}

// Inspector reads the monitored application's window state. Implementations
// are platform-specific; everything downstream of the poll loop only sees
// this interface so it can be tested with a scripted fake.
type Inspector interface {
	// Snapshot returns the current window state, or (nil, nil) when the
	// monitored application is not running. A running application with an
	// unreadable window yields a Snapshot with whatever fields are known.
	Snapshot() (*Snapshot, error)

	// Platform returns the detection backend ("x11", "wayland" or "process").
	Platform() string

	// Close cleans up any resources used by the inspector.
	Close() error
}

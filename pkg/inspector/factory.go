package inspector

import (
	"os"

	"github.com/hugo/termpresence/pkg/integrations/process"
	"github.com/hugo/termpresence/pkg/integrations/wayland"
	"github.com/hugo/termpresence/pkg/integrations/x11"
	"github.com/hugo/termpresence/pkg/window"
)

// New picks the best available inspector for the current session: Wayland
// when a compositor with a readable focus API is present, X11 when a display
// is reachable, and a process-only fallback otherwise. It never fails; the
// fallback always works.
func New(appHint string) window.Inspector {
	if server := DetectDisplayServer(); server == "wayland" {
		if det := wayland.New(appHint); det.IsAvailable() {
			return det
		}
	}

	if x11.IsAvailable() {
		if det, err := x11.New(appHint); err == nil {
			return det
		}
	}

	return process.New(appHint)
}

// DetectDisplayServer inspects the session environment and returns
// "wayland", "x11" or "unknown".
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}

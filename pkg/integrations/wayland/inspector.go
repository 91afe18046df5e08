package wayland

import (
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/hugo/termpresence/pkg/integrations/common"
	"github.com/hugo/termpresence/pkg/window"
)

// Inspector reads the monitored application's window state on Wayland.
// Compositors expose no common protocol for this, so detection is
// compositor-specific: GNOME via the Shell Eval D-Bus method, sway via
// swaymsg. Other compositors fall back to PID-only snapshots.
type Inspector struct {
	appHint    string
	compositor string
	hasSwaymsg bool
	hasGdbus   bool
}

// New creates a Wayland inspector for the given application hint.
func New(appHint string) *Inspector {
	i := &Inspector{appHint: strings.ToLower(appHint)}
	i.hasSwaymsg = commandExists("swaymsg")
	i.hasGdbus = commandExists("gdbus")
	i.detectCompositor()
	return i
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

func (i *Inspector) detectCompositor() {
	compositors := map[string]string{
		"sway":         "sway",
		"gnome-shell":  "gnome",
		"kwin_wayland": "kde",
		"Hyprland":     "hyprland",
	}

	for proc, name := range compositors {
		cmd := exec.Command("pgrep", "-x", proc)
		if err := cmd.Run(); err == nil {
			i.compositor = name
			return
		}
	}
	i.compositor = "unknown"
}

// IsAvailable reports whether this inspector can read window titles on the
// detected compositor.
func (i *Inspector) IsAvailable() bool {
	switch i.compositor {
	case "sway":
		return i.hasSwaymsg
	case "gnome":
		return i.hasGdbus
	default:
		return false
	}
}

func (i *Inspector) Platform() string {
	return "wayland"
}

func (i *Inspector) Snapshot() (*window.Snapshot, error) {
	pids := common.FindProcesses(i.appHint)
	if len(pids) == 0 {
		return nil, nil
	}

	var snap *window.Snapshot
	var err error
	switch i.compositor {
	case "sway":
		snap, err = i.focusedSway()
	case "gnome":
		snap, err = i.focusedGnome()
	default:
		err = errors.Errorf("unsupported wayland compositor: %s", i.compositor)
	}

	if err != nil || snap == nil {
		// Running, but the focused window can't be read this tick.
		return &window.Snapshot{PID: pids[0]}, nil
	}
	if snap.PID == 0 {
		snap.PID = pids[0]
	}
	return snap, nil
}

func (i *Inspector) Close() error {
	return nil
}

type swayNode struct {
	Name          string     `json:"name"`
	AppID         string     `json:"app_id"`
	PID           int32      `json:"pid"`
	Focused       bool       `json:"focused"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func (i *Inspector) focusedSway() (*window.Snapshot, error) {
	out, err := exec.Command("swaymsg", "-t", "get_tree").Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute swaymsg")
	}

	var root swayNode
	if err := json.Unmarshal(out, &root); err != nil {
		return nil, errors.Wrap(err, "failed to parse sway tree")
	}

	node := findFocused(&root)
	if node == nil {
		return nil, errors.New("no focused sway node")
	}
	if !i.matches(node.Name, node.AppID) {
		return nil, nil
	}
	return &window.Snapshot{Title: node.Name, PID: node.PID}, nil
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused {
		return n
	}
	for idx := range n.Nodes {
		if found := findFocused(&n.Nodes[idx]); found != nil {
			return found
		}
	}
	for idx := range n.FloatingNodes {
		if found := findFocused(&n.FloatingNodes[idx]); found != nil {
			return found
		}
	}
	return nil
}

// gnomeEvalScript asks GNOME Shell for the focused window. Eval is only
// honored in unsafe mode on recent GNOME versions; failure degrades to a
// PID-only snapshot.
const gnomeEvalScript = `
	let fw = global.display.get_focus_window();
	if (fw) {
		JSON.stringify({
			wm_class: fw.get_wm_class() || '',
			title: fw.get_title() || '',
			pid: fw.get_pid() || 0
		});
	} else {
		'null';
	}
`

func (i *Inspector) focusedGnome() (*window.Snapshot, error) {
	cmd := exec.Command("gdbus", "call", "--session",
		"--dest", "org.gnome.Shell",
		"--object-path", "/org/gnome/Shell",
		"--method", "org.gnome.Shell.Eval",
		gnomeEvalScript)

	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute gdbus")
	}

	result := string(out)
	start := strings.Index(result, "{")
	end := strings.LastIndex(result, "}")
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("no focused gnome window")
	}

	jsonStr := strings.ReplaceAll(result[start:end+1], `\"`, `"`)

	var fw struct {
		WMClass string `json:"wm_class"`
		Title   string `json:"title"`
		PID     int32  `json:"pid"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &fw); err != nil {
		return nil, errors.Wrap(err, "failed to parse gnome shell reply")
	}

	if !i.matches(fw.Title, fw.WMClass) {
		return nil, nil
	}
	return &window.Snapshot{Title: fw.Title, PID: fw.PID}, nil
}

func (i *Inspector) matches(fields ...string) bool {
	for _, s := range fields {
		if strings.Contains(strings.ToLower(s), i.appHint) {
			return true
		}
	}
	return false
}

package x11

import (
	"encoding/binary"
	"os"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/hugo/termpresence/pkg/integrations/common"
	"github.com/hugo/termpresence/pkg/window"
)

// Inspector reads the monitored application's window state from an X11
// server using EWMH properties.
type Inspector struct {
	appHint string
	conn    *xgb.Conn
	root    xproto.Window
	atoms   map[string]xproto.Atom
}

// IsAvailable reports whether an X11 display is reachable from the
// environment.
func IsAvailable() bool {
	return os.Getenv("DISPLAY") != ""
}

// New connects to the X server and interns the atoms the inspector needs.
func New(appHint string) (*Inspector, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	insp := &Inspector{
		appHint: strings.ToLower(appHint),
		conn:    conn,
		root:    root,
		atoms:   make(map[string]xproto.Atom),
	}

	atomNames := []string{
		"_NET_ACTIVE_WINDOW",
		"_NET_WM_NAME",
		"_NET_WM_PID",
		"WM_NAME",
		"WM_CLASS",
		"UTF8_STRING",
	}
	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		insp.atoms[name] = reply.Atom
	}

	return insp, nil
}

func (i *Inspector) Platform() string {
	return "x11"
}

// Snapshot returns the application's window state. When the application is
// running but not the active window, only the PID is reported.
func (i *Inspector) Snapshot() (*window.Snapshot, error) {
	pids := common.FindProcesses(i.appHint)
	if len(pids) == 0 {
		return nil, nil
	}

	win, err := i.activeWindow()
	if err != nil {
		// Running, but the focused window can't be read this tick.
		return &window.Snapshot{PID: pids[0]}, nil
	}

	title := i.windowName(win)
	instance, class := i.windowClass(win)
	if !i.matches(title, instance, class) {
		return &window.Snapshot{PID: pids[0]}, nil
	}

	pid := i.windowPID(win)
	if pid == 0 {
		pid = pids[0]
	}

	return &window.Snapshot{
		Title: title,
		PID:   pid,
	}, nil
}

func (i *Inspector) Close() error {
	i.conn.Close()
	return nil
}

func (i *Inspector) matches(title, instance, class string) bool {
	for _, s := range []string{title, instance, class} {
		if strings.Contains(strings.ToLower(s), i.appHint) {
			return true
		}
	}
	return false
}

func (i *Inspector) getProperty(win xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(i.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (i *Inspector) activeWindow() (xproto.Window, error) {
	data, err := i.getProperty(i.root, i.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err == nil && len(data) >= 4 {
		if win := xproto.Window(binary.LittleEndian.Uint32(data)); win != 0 {
			return win, nil
		}
	}

	// Fall back to the input focus, climbing to the top-level window.
	reply, err := xproto.GetInputFocus(i.conn).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to query input focus")
	}
	if reply.Focus == 0 || reply.Focus == i.root {
		return 0, errors.New("no active window")
	}
	return i.topLevelParent(reply.Focus), nil
}

func (i *Inspector) topLevelParent(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(i.conn, win).Reply()
		if err != nil || reply.Parent == i.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (i *Inspector) windowName(win xproto.Window) string {
	data, err := i.getProperty(win, i.atoms["_NET_WM_NAME"], i.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = i.getProperty(win, i.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

// windowClass returns the WM_CLASS instance and class names.
func (i *Inspector) windowClass(win xproto.Window) (string, string) {
	data, err := i.getProperty(win, i.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil || len(data) == 0 {
		return "", ""
	}

	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 2 {
		return parts[0], parts[1]
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return "", ""
}

func (i *Inspector) windowPID(win xproto.Window) int32 {
	data, err := i.getProperty(win, i.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(data))
}

package common

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// FindProcesses returns the PIDs of all running processes whose name
// contains hint (case-insensitive). Processes that disappear or deny access
// mid-scan are skipped.
func FindProcesses(hint string) []int32 {
	hint = strings.ToLower(hint)
	if hint == "" {
		return nil
	}

	procs, err := process.Processes()
	if err != nil {
		return nil
	}

	var pids []int32
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(name), hint) {
			pids = append(pids, p.Pid)
		}
	}
	return pids
}

// Running reports whether at least one process matching hint exists.
func Running(hint string) bool {
	return len(FindProcesses(hint)) > 0
}

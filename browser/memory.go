package browser

import (
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// chromeRSS sums the resident set, in bytes, of every process whose
// command line carries the marker. Chrome spawns renderer and utility
// children that all inherit the --user-data-dir flag, so the marker
// finds the whole tree without walking parent pids.
func chromeRSS(marker string) (uint64, error) {
	if marker == "" {
		return 0, nil
	}
	procs, err := process.Processes()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, p := range procs {
		cmdline, err := p.Cmdline()
		if err != nil || !strings.Contains(cmdline, marker) {
			continue
		}
		info, err := p.MemoryInfo()
		if err != nil || info == nil {
			continue
		}
		total += info.RSS
	}
	return total, nil
}

// killByMarker force-kills every process still carrying the marker on
// its command line and returns how many it hit. Used after a graceful
// shutdown to reap renderer children that outlived the main process.
func killByMarker(marker string) int {
	if marker == "" {
		return 0
	}
	procs, err := process.Processes()
	if err != nil {
		return 0
	}
	var killed int
	for _, p := range procs {
		cmdline, err := p.Cmdline()
		if err != nil || !strings.Contains(cmdline, marker) {
			continue
		}
		if p.Kill() == nil {
			killed++
		}
	}
	return killed
}

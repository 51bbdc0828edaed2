package guard

import (
	"os/exec"
	"runtime"
	"strings"
)

// processRunning reports whether any of the named processes is active on
// the host. The scan is best-effort: when no scanning tool is available the
// answer is "not running", consistent with the guard's heuristic nature.
func processRunning(names []string) (string, bool) {
	switch runtime.GOOS {
	case "windows":
		return windowsProcessRunning(names)
	default:
		return unixProcessRunning(names)
	}
}

func unixProcessRunning(names []string) (string, bool) {
	pgrep, err := exec.LookPath("pgrep")
	if err != nil {
		return "", false
	}

	for _, name := range names {
		// Exit status 1 means no match; anything captured means a hit.
		out, err := exec.Command(pgrep, "-x", name).Output()
		if err == nil && len(strings.TrimSpace(string(out))) > 0 {
			return name, true
		}
	}
	return "", false
}

func windowsProcessRunning(names []string) (string, bool) {
	out, err := exec.Command("tasklist", "/FO", "CSV", "/NH").Output()
	if err != nil {
		return "", false
	}

	listing := strings.ToLower(string(out))
	for _, name := range names {
		if strings.Contains(listing, strings.ToLower(name)+".exe") {
			return name, true
		}
	}
	return "", false
}

package browser

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// xvfbReadyTimeout bounds the wait for the X socket.
const xvfbReadyTimeout = 5 * time.Second

// startXvfb runs a virtual display for headful Chrome and waits until its
// socket exists. An already running display is reused.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}
	socket := xSocket(m.cfg.XvfbDisplay)
	if _, err := os.Stat(socket); err == nil {
		m.cfg.Logger.Info("browser: reusing existing display", "display", m.cfg.XvfbDisplay)
		return nil
	}

	cmd := exec.Command("Xvfb", m.cfg.XvfbDisplay, "-screen", "0", "1920x1080x24", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	m.xvfb = cmd

	deadline := time.Now().Add(xvfbReadyTimeout)
	for {
		if _, err := os.Stat(socket); err == nil {
			break
		}
		if time.Now().After(deadline) {
			m.stopXvfb()
			return fmt.Errorf("display %s not ready after %s", m.cfg.XvfbDisplay, xvfbReadyTimeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
	m.cfg.Logger.Info("browser: Xvfb started", "display", m.cfg.XvfbDisplay, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if p := m.xvfb.Process; p != nil {
		p.Kill()
		m.xvfb.Wait()
	}
	m.xvfb = nil
	m.cfg.Logger.Info("browser: Xvfb stopped", "display", m.cfg.XvfbDisplay)
}

// xSocket maps ":99" or ":99.0" to /tmp/.X11-unix/X99.
func xSocket(display string) string {
	n := strings.TrimPrefix(display, ":")
	if i := strings.IndexByte(n, '.'); i >= 0 {
		n = n[:i]
	}
	return "/tmp/.X11-unix/X" + n
}

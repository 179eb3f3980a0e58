//go:build windows

package logging

import "golang.org/x/sys/windows"

// enableColors turns on virtual terminal processing for the console.
func enableColors() {
	handle := windows.Stdout
	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err == nil {
		mode |= windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
		_ = windows.SetConsoleMode(handle, mode)
	}
}

//go:build windows

package main

import (
	"golang.org/x/sys/windows"
)

// enableVirtualTerminal turns on ANSI escape handling for legacy consoles.
func enableVirtualTerminal() {
	for _, std := range []uint32{windows.STD_OUTPUT_HANDLE, windows.STD_ERROR_HANDLE} {
		handle, err := windows.GetStdHandle(std)
		if err != nil || handle == windows.InvalidHandle {
			continue
		}
		var mode uint32
		if err := windows.GetConsoleMode(handle, &mode); err != nil {
			continue
		}
		_ = windows.SetConsoleMode(handle, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
	}
}

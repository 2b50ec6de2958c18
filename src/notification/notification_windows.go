//go:build windows

package notification

import (
	"syscall"

	"github.com/lxn/win"
)

// ShowBlockingError shows a modal, topmost error box and returns when the
// operator closes it. Used before the main window exists.
func ShowBlockingError(title, message string) {
	titlePtr, _ := syscall.UTF16PtrFromString(title)
	messagePtr, _ := syscall.UTF16PtrFromString(clip(message))
	win.MessageBox(0, messagePtr, titlePtr, win.MB_OK|win.MB_ICONERROR|win.MB_TOPMOST)
}

package repo

import (
	"io/fs"

	"github.com/odvcencio/ogit/pkg/object"
)

// modeFromFileInfo maps an lstat result to a tree mode. ok is false for
// file types a tree cannot hold.
func modeFromFileInfo(info fs.FileInfo) (mode string, ok bool) {
	m := info.Mode()
	switch {
	case m.IsRegular():
		if m&0o100 != 0 {
			return object.TreeModeExecutable, true
		}
		return object.TreeModeFile, true
	case m&fs.ModeSymlink != 0:
		return object.TreeModeSymlink, true
	case m.IsDir():
		return object.TreeModeDir, true
	default:
		return "", false
	}
}

func describeFileType(m fs.FileMode) string {
	switch {
	case m&fs.ModeNamedPipe != 0:
		return "named pipe"
	case m&fs.ModeSocket != 0:
		return "socket"
	case m&fs.ModeCharDevice != 0:
		return "character device"
	case m&fs.ModeDevice != 0:
		return "device"
	default:
		return "irregular file"
	}
}

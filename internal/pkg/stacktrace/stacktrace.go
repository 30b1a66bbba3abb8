// Package stacktrace shortens goroutine dumps to the frames that belong to
// this module.
package stacktrace

import "strings"

const marker = "/internal/"

// InternalFrames returns "internal/path.go:line func" for every frame of a
// debug.Stack dump whose file lives under an internal/ directory.
func InternalFrames(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	frames := make([]string, 0, len(lines)/2)

	for i := 1; i < len(lines); i++ {
		file := strings.TrimSpace(lines[i])
		idx := strings.Index(file, marker)
		if idx == -1 || !strings.Contains(file, ".go:") {
			continue
		}

		file = file[idx+1:]
		if sp := strings.IndexByte(file, ' '); sp != -1 {
			file = file[:sp]
		}

		fn := strings.TrimSpace(lines[i-1])
		if p := strings.LastIndexByte(fn, '('); p > 0 {
			fn = fn[:p]
		}
		if slash := strings.LastIndexByte(fn, '/'); slash != -1 {
			fn = fn[slash+1:]
		}

		frames = append(frames, file+" "+fn)
	}

	return frames
}

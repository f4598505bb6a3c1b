package quitter

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// goid returns the current goroutine's id, parsed from the header line of
// runtime.Stack ("goroutine 123 [running]:"). The header always fits well
// within the buffer.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	end := bytes.IndexByte(header, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(header[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

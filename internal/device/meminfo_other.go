//go:build !linux

package device

import "runtime"

type memInfo struct {
	Free uint64
	Swap bool
}

// readMemInfo はLinux以外ではGoヒープの空き領域を返す
func readMemInfo() memInfo {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return memInfo{Free: ms.HeapIdle - ms.HeapReleased}
}

//go:build linux

package device

import (
	"runtime"

	"golang.org/x/sys/unix"
)

type memInfo struct {
	Free uint64 // 空きメモリ (バイト)
	Swap bool   // 拡張RAM（スワップ）の有無
}

// readMemInfo はsysinfo(2)から空きメモリとスワップの有無を取得する
func readMemInfo() memInfo {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return memInfo{Free: ms.HeapIdle - ms.HeapReleased}
	}

	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return memInfo{
		Free: uint64(info.Freeram) * unit,
		Swap: info.Totalswap > 0,
	}
}

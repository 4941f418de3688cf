//go:build linux

package storage

import (
	"golang.org/x/sys/unix"
)

var fsTypes = map[uint32]string{
	0xEF53:     "EXT4",
	0x4d44:     "FAT",
	0x2011BAB0: "EXFAT",
	0x5346544e: "NTFS",
	0x01021994: "TMPFS",
	0x9123683E: "BTRFS",
	0x58465342: "XFS",
	0x794c7630: "OVERLAYFS",
	0x6969:     "NFS",
	0x65735546: "FUSE",
}

// statFS はstatfs(2)でファイルシステム種別と容量を取得する
func statFS(path string) (Info, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Info{}, err
	}

	fsType, ok := fsTypes[uint32(st.Type)]
	if !ok {
		fsType = "UNKNOWN"
	}

	bsize := uint64(st.Bsize)
	return Info{
		Type:          fsType,
		CapacityBytes: uint64(st.Blocks) * bsize,
		FreeBytes:     uint64(st.Bavail) * bsize,
	}, nil
}

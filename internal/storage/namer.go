package storage

import (
	"fmt"
	"sync"
	"time"
)

// Clock は起動からの経過時間を返す
type Clock interface {
	Uptime() time.Duration
}

type bootClock struct {
	start time.Time
}

// NewBootClock は現在時刻を起動時刻とするClockを作成する
func NewBootClock() Clock {
	return bootClock{start: time.Now()}
}

// Uptime はモノトニック時計による経過時間を返す
func (c bootClock) Uptime() time.Duration {
	return time.Since(c.start)
}

// Namer は起動からのミリ秒でファイル名を生成する
//
// 同一ミリ秒内の呼び出しは1ずつ加算するので、1回の起動内では名前が重複しない。
// 再起動をまたいだ一意性は保証しない。
type Namer struct {
	prefix string
	clock  Clock

	mu   sync.Mutex
	last int64
}

// NewNamer は新しいNamerを作成する
func NewNamer(prefix string, clock Clock) *Namer {
	return &Namer{
		prefix: prefix,
		clock:  clock,
		last:   -1,
	}
}

// Next は次のファイル名（例: foto_12345.jpg）を返す
func (n *Namer) Next() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.clock.Uptime().Milliseconds()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return fmt.Sprintf("%s%d.jpg", n.prefix, ms)
}

//go:build linux

package sys

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/brickingsoft/uring/pkg/kernel"
)

var (
	somaxconn   = syscall.SOMAXCONN
	backlogOnce = sync.Once{}
)

// MaxListenerBacklog reads net.core.somaxconn, falling back to syscall.SOMAXCONN.
func MaxListenerBacklog() int {
	backlogOnce.Do(func() {
		data, err := os.ReadFile("/proc/sys/net/core/somaxconn")
		if err != nil {
			return
		}
		f := strings.Fields(string(data))
		if len(f) == 0 {
			return
		}
		n, err := strconv.Atoi(f[0])
		if err != nil || n <= 0 {
			return
		}
		somaxconn = maxAckBacklog(n)
	})
	return somaxconn
}

// maxAckBacklog clamps n to the width of sk_max_ack_backlog, 16 bits before 4.1.
func maxAckBacklog(n int) int {
	size := 16
	if version, err := kernel.Get(); err == nil && version.AtLeast(4, 1, 0) {
		size = 32
	}
	var maxAck uint = 1<<size - 1
	if uint(n) > maxAck {
		n = int(maxAck)
	}
	return n
}

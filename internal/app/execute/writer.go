// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"io"
	"sync"
)

// lockedWriter serializes writes from concurrently running steps.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

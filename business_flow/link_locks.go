package businessflow

import "sync"

var (
	linkGenMutex sync.Mutex
)

func lockLinkGen() {
	linkGenMutex.Lock()
}

func unlockLinkGen() {
	linkGenMutex.Unlock()
}

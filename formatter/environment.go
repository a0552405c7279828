// formatter/environment.go

package formatter

import (
	"os"
	"os/user"
	"sync"
	"time"
)

// Environment supplies the process facts every document is enriched with.
// Tests substitute a fixed implementation.
type Environment interface {
	CurrentUser() string
	Hostname() string
	Now() time.Time
}

const unknownValue = "unknown"

// Cached system values to avoid repeated syscalls
var (
	cachedUser     string
	cachedHostname string
	cacheOnce      sync.Once
)

// initCachedValues resolves the OS user and hostname once per process
func initCachedValues() {
	if u, err := user.Current(); err == nil && u.Username != "" {
		cachedUser = u.Username
	} else if name := os.Getenv("USER"); name != "" {
		cachedUser = name
	} else {
		cachedUser = unknownValue
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		cachedHostname = unknownValue
	} else {
		cachedHostname = hostname
	}
}

type systemEnvironment struct{}

// SystemEnvironment returns the Environment of the running process.
func SystemEnvironment() Environment {
	return systemEnvironment{}
}

func (systemEnvironment) CurrentUser() string {
	cacheOnce.Do(initCachedValues)
	return cachedUser
}

func (systemEnvironment) Hostname() string {
	cacheOnce.Do(initCachedValues)
	return cachedHostname
}

func (systemEnvironment) Now() time.Time {
	return time.Now()
}

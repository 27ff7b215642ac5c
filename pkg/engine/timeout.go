package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/kerf/pkg/scene"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout reports a script that ran past the engine timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded reports a result discarded because a newer Evaluate
	// started while it ran.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

type evalResult struct {
	scene  *scene.Scene
	errors []EvalError
	err    error
}

// waitWithTimeout blocks until ch delivers or timeout elapses. A result
// whose gen no longer matches *currentGen is dropped. A timed-out goroutine
// keeps running; its scene is unreachable once it finishes and is never
// persisted past the splits it already submitted.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
	mu *sync.Mutex,
	currentGen *uint64,
) (*scene.Scene, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res evalResult
	select {
	case res = <-ch:
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}

	mu.Lock()
	stale := gen != *currentGen
	mu.Unlock()
	if stale {
		return nil, nil, ErrSuperseded
	}
	return res.scene, res.errors, res.err
}

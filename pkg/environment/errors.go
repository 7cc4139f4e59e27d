package environment

import (
	"errors"
	"fmt"

	"github.com/boristopalov/irrigo/pkg/core"
)

var (
	// ErrInvalidAction matches any *InvalidActionError.
	ErrInvalidAction = errors.New("invalid action")
	// ErrEpisodeTerminated is returned by Step once the episode has ended
	// and Reset has not been called since.
	ErrEpisodeTerminated = errors.New("episode terminated: reset required before stepping")
)

// InvalidActionError reports an action outside the environment's action space.
type InvalidActionError struct {
	Action core.Action
	N      int
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %d: must be in [0, %d)", e.Action, e.N)
}

func (e *InvalidActionError) Is(target error) bool {
	return target == ErrInvalidAction
}

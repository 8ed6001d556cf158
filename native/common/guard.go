package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether the owning module is currently halted.
type PauseView interface {
	IsPaused() (bool, error)
}

// Guard rejects mutating entry points while the owning module is paused.
func Guard(p PauseView) error {
	if p == nil {
		return nil
	}
	paused, err := p.IsPaused()
	if err != nil {
		return err
	}
	if paused {
		return ErrModulePaused
	}
	return nil
}

package cache

import "time"

// Noop never stores anything. Tests inject it to exercise the compute
// path on every call.
type Noop struct{}

func (Noop) Get(string, interface{}) (bool, error)        { return false, nil }
func (Noop) Put(string, interface{}, time.Duration) error { return nil }
func (Noop) Remove(string) error                          { return nil }
func (Noop) Clear() error                                 { return nil }

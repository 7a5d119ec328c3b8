package store

import "sync"

// vehicleLocks serializes writes per vehicle. Different vehicles proceed in
// parallel. The lock set grows with fleet size and is never shrunk.
type vehicleLocks struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func newVehicleLocks() *vehicleLocks {
	return &vehicleLocks{
		locks: map[string]*sync.Mutex{},
	}
}

func (v *vehicleLocks) Lock(vehicleID string) func() {
	v.mutex.Lock()
	lock, ok := v.locks[vehicleID]
	if !ok {
		lock = &sync.Mutex{}
		v.locks[vehicleID] = lock
	}
	v.mutex.Unlock()

	lock.Lock()
	return lock.Unlock
}

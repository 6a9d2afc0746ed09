package domain

// RoomKey is an unwrapped room key together with the algorithm it is used with.
//
// A RoomKey lives for the duration of one send or fetch call. Callers must Close it
// when the operation ends so the key bytes do not linger in memory.
type RoomKey struct {
	Algorithm Algorithm
	Key       []byte
}

// Close zeroes the key material.
func (k *RoomKey) Close() {
	if k == nil {
		return
	}
	Zero(k.Key)
}

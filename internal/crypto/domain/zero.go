package domain

// Zero overwrites key material or plaintext with zeros once it is no longer needed.
func Zero(b []byte) {
	clear(b)
}

// ZeroAll zeroes every given buffer. Nil buffers are ignored.
func ZeroAll(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
}

package keycrypto

import (
	"runtime"
	"sync"
	"sync/atomic"
)

//nolint:gochecknoglobals // process-wide switch set from config
var memoryLockDisabled atomic.Bool

// SetMemoryLock enables or disables mlock for new SecureBytes.
func SetMemoryLock(enabled bool) {
	memoryLockDisabled.Store(!enabled)
}

// SecureBytes wraps sensitive bytes with best-effort mlock and explicit
// zeroing on Destroy.
type SecureBytes struct {
	data   []byte
	locked bool
	mu     sync.Mutex
}

// NewSecureBytes allocates size bytes, locked in memory when the system allows.
func NewSecureBytes(size int) *SecureBytes {
	sb := &SecureBytes{data: make([]byte, size)}
	if !memoryLockDisabled.Load() {
		sb.locked = mlock(sb.data)
	}

	runtime.SetFinalizer(sb, func(s *SecureBytes) {
		s.Destroy()
	})

	return sb
}

// SecureBytesFromSlice copies data into a new SecureBytes.
func SecureBytesFromSlice(data []byte) (*SecureBytes, error) {
	sb := NewSecureBytes(len(data))
	copy(sb.data, data)
	return sb, nil
}

// Bytes returns the underlying slice, or nil after Destroy.
func (s *SecureBytes) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Copy returns an unlocked copy of the data the caller must zero.
func (s *SecureBytes) Copy() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// IsLocked returns whether the memory is mlocked.
func (s *SecureBytes) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Len returns the length of the data.
func (s *SecureBytes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Destroy zeros and unlocks the memory. Safe to call multiple times.
func (s *SecureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}

	ZeroBytes(s.data)
	if s.locked {
		munlock(s.data)
		s.locked = false
	}
	s.data = nil

	runtime.SetFinalizer(s, nil)
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

package vm

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

type echoNative struct{}

func (echoNative) Run(_ Env, input []byte) ([]byte, error) { return input, nil }

// TestNativeRegistry verifies that RegisterNative binds by code hash, lookup
// works, and UnregisterNative actually removes the entry.
func TestNativeRegistry(t *testing.T) {
	code := []byte("native:echo")

	h := RegisterNative(code, echoNative{})
	if h != crypto.Keccak256Hash(code) {
		t.Fatalf("handle must be the code hash, got %x", h)
	}
	if _, ok := LookupNative(code); !ok {
		t.Fatalf("lookup failed for registered code")
	}
	if _, ok := LookupNative([]byte("native:other")); ok {
		t.Fatalf("lookup succeeded for unknown code")
	}
	if _, ok := LookupNative(nil); ok {
		t.Fatalf("empty code must never resolve to a native")
	}

	UnregisterNative(h)
	if _, ok := LookupNative(code); ok {
		t.Fatalf("native should have been removed after unregister")
	}
}

// TestNativeRegistryRace ensures that concurrent registrations are race-free.
func TestNativeRegistryRace(t *testing.T) {
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n)
	codes := make(chan []byte, n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			code := []byte{0xfe, byte(i), byte(i >> 8)}
			RegisterNative(code, echoNative{})
			codes <- code
		}(i)
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if _, ok := LookupNative(code); !ok {
			t.Fatalf("lookup failed for code %x", code)
		}
		UnregisterNative(crypto.Keccak256Hash(code))
	}
}

func TestDoppelgangerCodeRegistered(t *testing.T) {
	impl, ok := LookupNative(DoppelgangerCode)
	if !ok {
		t.Fatalf("doppelganger payload is not registered")
	}
	if _, ok := impl.(*Doppelganger); !ok {
		t.Fatalf("unexpected implementation %T", impl)
	}
}

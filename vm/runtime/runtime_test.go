package runtime

import (
	"testing"

	"github.com/garyschulte/metaru/frame"
)

func TestExecuteSimpleReturn(t *testing.T) {
	// PUSH1 0x2a; PUSH1 0x00; MSTORE; PUSH1 0x20; PUSH1 0x00; RETURN
	code := []byte{
		0x60, 0x2a,
		0x60, 0x00,
		0x52,
		0x60, 0x20,
		0x60, 0x00,
		0xf3,
	}
	result, cb, err := Execute(code, &Config{GasLimit: 100_000})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.State != frame.CompletedSuccess {
		t.Fatalf("state = %v, want CompletedSuccess", result.State)
	}
	if len(result.Output) != 32 {
		t.Fatalf("output length = %d, want 32", len(result.Output))
	}
	if result.Output[31] != 0x2a {
		t.Fatalf("output low byte = %#x, want 0x2a", result.Output[31])
	}
	if cb.State() != frame.CompletedSuccess {
		t.Fatal("control block state not persisted")
	}
}

func TestExecuteWitnessSeedsStorage(t *testing.T) {
	var contract [frame.AddressSize]byte
	var key, value [frame.WordSize]byte
	key[frame.WordSize-1] = 1
	value[frame.WordSize-1] = 99

	// PUSH1 0x01; SLOAD; PUSH1 0x00; MSTORE; PUSH1 0x20; PUSH1 0x00; RETURN
	code := []byte{
		0x60, 0x01,
		0x54,
		0x60, 0x00,
		0x52,
		0x60, 0x20,
		0x60, 0x00,
		0xf3,
	}
	cfg := &Config{
		GasLimit: 100_000,
		Contract: contract,
		Storage: []StorageWitnessEntry{
			{Address: contract, Key: key, Value: value, IsWarm: false},
		},
	}
	result, _, err := Execute(code, cfg)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.State != frame.CompletedSuccess {
		t.Fatalf("state = %v, want CompletedSuccess", result.State)
	}
	if result.Output[31] != 99 {
		t.Fatalf("output low byte = %d, want 99 (the pre-seeded witness value)", result.Output[31])
	}
}

package vm

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/params"
)

func TestActivePrecompileSets(t *testing.T) {
	tests := []struct {
		spec params.SpecID
		want int
	}{
		{params.Frontier, 4},
		{params.Byzantium, 8},
		{params.Istanbul, 9},
		{params.Cancun, 10},
		{params.Prague, 17},
	}
	for _, tt := range tests {
		if got := len(ActivePrecompiles(tt.spec)); got != tt.want {
			t.Errorf("%s: %d precompiles, want %d", tt.spec, got, tt.want)
		}
	}
}

func TestIdentityPrecompile(t *testing.T) {
	p := &identityPrecompile{}
	input := []byte("hello world")
	out, err := p.Run(input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Errorf("output = %x, want input", out)
	}
	if gas := p.RequiredGas(input); gas != 15+3 {
		t.Errorf("RequiredGas = %d, want 18", gas)
	}
}

func TestSha256Precompile(t *testing.T) {
	p := &sha256Precompile{}
	input := []byte("abc")
	out, err := p.Run(input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := sha256.Sum256(input)
	if !bytes.Equal(out, want[:]) {
		t.Errorf("output = %x, want %x", out, want)
	}
}

func TestEcrecoverInvalidInputReturnsEmpty(t *testing.T) {
	p := &ecrecoverPrecompile{}
	// Garbage v value: output must be empty with no error.
	input := make([]byte, 128)
	input[63] = 99
	out, err := p.Run(input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("invalid v should produce empty output, got %x", out)
	}
}

func TestModexpTrivial(t *testing.T) {
	p := &modexpPrecompile{eip2565: true}
	// base=3, exp=2, mod=5 -> 9 mod 5 = 4, all 1-byte operands.
	input := make([]byte, 96+3)
	input[31] = 1
	input[63] = 1
	input[95] = 1
	input[96] = 3
	input[97] = 2
	input[98] = 5
	out, err := p.Run(input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != 4 {
		t.Errorf("modexp(3,2,5) = %x, want 04", out)
	}
	if gas := p.RequiredGas(input); gas != 200 {
		t.Errorf("RequiredGas = %d, want the 200 floor", gas)
	}
}

func TestModexpOsakaFloor(t *testing.T) {
	p := &modexpPrecompile{eip2565: true, eip7883: true}
	input := make([]byte, 96)
	if gas := p.RequiredGas(input); gas != 500 {
		t.Errorf("RequiredGas = %d, want the 500 floor (EIP-7883)", gas)
	}
}

func TestRunPrecompileOutOfGas(t *testing.T) {
	p := &sha256Precompile{}
	_, _, err := RunPrecompile(p, []byte("x"), 10)
	if err != ErrOutOfGas {
		t.Errorf("err = %v, want ErrOutOfGas", err)
	}
}

func TestBlake2FInputValidation(t *testing.T) {
	p := &blake2FPrecompile{}
	if _, err := p.Run(make([]byte, 212)); err == nil {
		t.Error("short input must be rejected")
	}
	bad := make([]byte, 213)
	bad[212] = 2
	if _, err := p.Run(bad); err == nil {
		t.Error("invalid final flag must be rejected")
	}
}

func TestPrecompileAddressLayout(t *testing.T) {
	want := types.HexToAddress("0x0000000000000000000000000000000000000009")
	if got := precompileAddr(0x09); got != want {
		t.Errorf("precompileAddr(9) = %s, want %s", got, want)
	}
}

func TestMSMDiscountMonotonic(t *testing.T) {
	for i := 1; i < len(blsMSMDiscount); i++ {
		if blsMSMDiscount[i] > blsMSMDiscount[i-1] {
			t.Fatalf("discount table not monotonic at %d", i)
		}
	}
}

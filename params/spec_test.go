package params

import "testing"

func TestSpecOrdering(t *testing.T) {
	if !Cancun.Enabled(Berlin) {
		t.Error("Cancun includes Berlin rules")
	}
	if Berlin.Enabled(Cancun) {
		t.Error("Berlin does not include Cancun rules")
	}
	if !Frontier.Enabled(Frontier) {
		t.Error("a spec includes itself")
	}
}

func TestSpecNames(t *testing.T) {
	if Prague.String() != "Prague" {
		t.Errorf("Prague.String() = %q", Prague.String())
	}
	if SpecID(200).String() != "Unknown" {
		t.Errorf("out of range spec = %q", SpecID(200).String())
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig(Cancun)
	if cfg.MaxCodeSize() != MaxCodeSize {
		t.Errorf("MaxCodeSize = %d, want %d", cfg.MaxCodeSize(), MaxCodeSize)
	}
	if cfg.MaxInitcodeSize() != MaxInitcodeSize {
		t.Errorf("MaxInitcodeSize = %d, want %d", cfg.MaxInitcodeSize(), MaxInitcodeSize)
	}
	if cfg.MaxBlobs() != MaxBlobsPerTxCancun {
		t.Errorf("MaxBlobs = %d, want %d", cfg.MaxBlobs(), MaxBlobsPerTxCancun)
	}
	cfg.Spec = Prague
	if cfg.MaxBlobs() != MaxBlobsPerTxPrague {
		t.Errorf("Prague MaxBlobs = %d, want %d", cfg.MaxBlobs(), MaxBlobsPerTxPrague)
	}
}

func TestConfigOverrides(t *testing.T) {
	cfg := DefaultConfig(Cancun)
	cfg.LimitContractCodeSize = 1000
	if cfg.MaxCodeSize() != 1000 {
		t.Errorf("override ignored: %d", cfg.MaxCodeSize())
	}
	if cfg.MaxInitcodeSize() != 2000 {
		t.Errorf("initcode should track code override: %d", cfg.MaxInitcodeSize())
	}
}

func TestValidationCheckMask(t *testing.T) {
	cfg := DefaultConfig(Cancun)
	if !cfg.CheckEnabled(CheckNonce) {
		t.Error("nonce check should default on")
	}
	cfg.DisableNonceCheck = true
	if cfg.CheckEnabled(CheckNonce) {
		t.Error("disable flag should win")
	}
	cfg.DisableNonceCheck = false
	cfg.ValidationChecks = CheckAll &^ CheckNonce
	if cfg.CheckEnabled(CheckNonce) {
		t.Error("mask should win")
	}
	if !cfg.CheckEnabled(CheckBalance) {
		t.Error("other checks unaffected by mask")
	}
}

func TestRefundQuotient(t *testing.T) {
	if DefaultConfig(Berlin).RefundQuotientFor() != RefundQuotient {
		t.Error("pre-London quotient is 2")
	}
	if DefaultConfig(London).RefundQuotientFor() != RefundQuotientLondon {
		t.Error("London quotient is 5")
	}
}

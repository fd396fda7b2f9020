package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog("copy", 0, 200) {
		t.Error("first call should log")
	}
	if s.ShouldLog("copy", 10, 200) {
		t.Error("5% should not log with 10% buckets")
	}
	if !s.ShouldLog("copy", 20, 200) {
		t.Error("10% should log")
	}
	if !s.ShouldLog("copy", 200, 200) {
		t.Error("100% should log")
	}
	if s.ShouldLog("copy", 250, 200) {
		t.Error("overshoot should stay in the 100% bucket")
	}
}

func TestProgressSamplerPhaseChangeResets(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog("scan", 50, 100)

	if !s.ShouldLog("copy", 0, 100) {
		t.Error("phase change should log")
	}
	if s.ShouldLog("copy", 1, 100) {
		t.Error("same bucket after phase change should not log")
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(0)
	if s.bucketSize != 5 {
		t.Fatalf("expected default bucket size 5, got %v", s.bucketSize)
	}
	if !s.ShouldLog("scan", 3, 0) {
		t.Error("first phase should log")
	}
	if s.ShouldLog("scan", 900, 0) {
		t.Error("unknown total should only log phase changes")
	}
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog("x", 1, 1) {
		t.Error("nil sampler should always log")
	}
}

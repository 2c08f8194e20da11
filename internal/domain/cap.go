package domain

import "math"

// Default per-collection vector caps. The hard cap blocks ingestion; the
// soft cap is informational only.
const (
	DefaultSoftCap = 30_000
	DefaultHardCap = 50_000
)

// CapStatus is derived from a live vector count against the two thresholds.
type CapStatus struct {
	SoftCap        int     `json:"soft_cap"`
	HardCap        int     `json:"hard_cap"`
	SoftUsageRatio float64 `json:"soft_usage_ratio"`
	HardUsageRatio float64 `json:"hard_usage_ratio"`
	SoftExceeded   bool    `json:"soft_exceeded"`
	HardExceeded   bool    `json:"hard_exceeded"`
}

// ComputeCapStatus derives a CapStatus for the given vector count.
func ComputeCapStatus(vectors, softCap, hardCap int) CapStatus {
	var softUsage, hardUsage float64
	if softCap > 0 {
		softUsage = float64(vectors) / float64(softCap)
	}
	if hardCap > 0 {
		hardUsage = float64(vectors) / float64(hardCap)
	}
	return CapStatus{
		SoftCap:        softCap,
		HardCap:        hardCap,
		SoftUsageRatio: round4(softUsage),
		HardUsageRatio: round4(hardUsage),
		SoftExceeded:   vectors >= softCap,
		HardExceeded:   vectors >= hardCap,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

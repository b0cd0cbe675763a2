package sandbox

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NetworkMode controls how much of the host network a sandboxed process can see.
type NetworkMode int

const (
	// NetworkNone removes the network stack entirely. Nothing resolves,
	// nothing connects.
	NetworkNone NetworkMode = iota

	// NetworkRestricted grants outbound access with a backend-specific
	// coarse filter. This is an approximation, not a per-destination
	// firewall; see each backend for the exact semantics.
	NetworkRestricted

	// NetworkBridge grants unrestricted outbound network access through
	// the backend's default network mode.
	NetworkBridge
)

// String returns the string representation of the network mode.
func (n NetworkMode) String() string {
	switch n {
	case NetworkNone:
		return "none"
	case NetworkRestricted:
		return "restricted"
	case NetworkBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// ParseNetworkMode parses a network mode string into a NetworkMode value.
func ParseNetworkMode(s string) (NetworkMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return NetworkNone, nil
	case "restricted":
		return NetworkRestricted, nil
	case "bridge", "host":
		return NetworkBridge, nil
	default:
		return NetworkNone, fmt.Errorf("invalid network mode: %s (must be none, restricted, or bridge)", s)
	}
}

// Policy is the declarative isolation and resource configuration for one
// sandbox instance. It is supplied at construction and never mutated by
// the backend.
type Policy struct {
	// Memory is the hard memory ceiling as a quantity string (e.g. "256Mi").
	Memory string

	// CPU is the hard CPU ceiling in fractional cores (e.g. 0.5).
	CPU float64

	// Network selects the network isolation mode.
	Network NetworkMode

	// ReadOnly mounts the root filesystem (and home/tmp where the backend
	// supports it) read-only. A small writable scratch area remains.
	ReadOnly bool

	// AllowedPaths are host paths exposed into the sandbox. Read-only
	// unless ReadOnly is false for the whole policy.
	AllowedPaths []string

	// AllowedHosts is consulted only when Network is NetworkRestricted.
	// Backends that cannot filter per host degrade to their nearest safe
	// approximation and must never grant more than NetworkNone would.
	AllowedHosts []string

	// Timeout is the wall-clock ceiling for one execution.
	Timeout time.Duration

	// MaxOutputBytes caps stdout and stderr independently. Excess output
	// is silently discarded.
	MaxOutputBytes int64

	// WorkDir is the default working directory inside the sandbox.
	WorkDir string
}

const (
	defaultMemory         = "256Mi"
	defaultCPU            = 1.0
	defaultTimeout        = 30 * time.Second
	defaultMaxOutputBytes = 1 << 20 // 1 MiB
	defaultWorkDir        = "/workspace"
)

// DefaultPolicy returns a conservative policy: no network, read-only root,
// one core, 256Mi, 30s timeout, 1MiB output caps.
func DefaultPolicy() Policy {
	return Policy{
		Memory:         defaultMemory,
		CPU:            defaultCPU,
		Network:        NetworkNone,
		ReadOnly:       true,
		Timeout:        defaultTimeout,
		MaxOutputBytes: defaultMaxOutputBytes,
		WorkDir:        defaultWorkDir,
	}
}

// WithDefaults returns a copy of the policy with zero values replaced by
// the conservative defaults. The receiver is not modified.
func (p Policy) WithDefaults() Policy {
	if p.Memory == "" {
		p.Memory = defaultMemory
	}
	if p.CPU <= 0 {
		p.CPU = defaultCPU
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.MaxOutputBytes <= 0 {
		p.MaxOutputBytes = defaultMaxOutputBytes
	}
	if p.WorkDir == "" {
		p.WorkDir = defaultWorkDir
	}
	return p
}

// Validate validates the policy for correctness. Returns an error
// describing the first problem found.
func (p *Policy) Validate() error {
	if _, err := ParseMemoryQuantity(p.Memory); err != nil {
		return fmt.Errorf("invalid memory quantity: %w", err)
	}

	if p.CPU <= 0 {
		return fmt.Errorf("cpu must be a positive fractional core count, got %v", p.CPU)
	}

	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", p.Timeout)
	}

	if p.MaxOutputBytes <= 0 {
		return fmt.Errorf("max output bytes must be positive, got %d", p.MaxOutputBytes)
	}

	for _, path := range p.AllowedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("allowed path must be absolute: %s", path)
		}
	}

	if len(p.AllowedHosts) > 0 && p.Network != NetworkRestricted {
		return fmt.Errorf("allowed hosts require network mode restricted, got %s", p.Network)
	}

	return nil
}

// MemoryBytes returns the memory ceiling in bytes, or 0 if the quantity
// does not parse. Validate catches the parse failure case first.
func (p *Policy) MemoryBytes() int64 {
	bytes, err := ParseMemoryQuantity(p.Memory)
	if err != nil {
		return 0
	}
	return bytes
}

// ParseMemoryQuantity parses a memory quantity string into bytes.
// Supported suffixes: Ki, Mi, Gi (binary) and K, M, G (decimal).
// A bare number is taken as bytes.
func ParseMemoryQuantity(quantity string) (int64, error) {
	q := strings.TrimSpace(quantity)
	if q == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	multipliers := []struct {
		suffix string
		factor int64
	}{
		{"Ki", 1 << 10},
		{"Mi", 1 << 20},
		{"Gi", 1 << 30},
		{"K", 1000},
		{"M", 1000 * 1000},
		{"G", 1000 * 1000 * 1000},
	}

	factor := int64(1)
	number := q
	for _, m := range multipliers {
		if strings.HasSuffix(q, m.suffix) {
			factor = m.factor
			number = strings.TrimSuffix(q, m.suffix)
			break
		}
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(number), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("quantity must be positive: %q", quantity)
	}

	return int64(value * float64(factor)), nil
}

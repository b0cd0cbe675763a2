package platform

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver"
	"github.com/safedep/dry/log"

	"github.com/safedep/cage/sandbox"
	"github.com/safedep/cage/sandbox/driver"
)

const (
	// containerPidsLimit blunts fork-bomb style abuse. The policy does
	// not expose this knob; the ceiling is fixed and conservative.
	containerPidsLimit = 128

	containerWorkspace = "/workspace"
	containerHome      = "/home/sandbox"

	defaultContainerImage = "docker.io/library/alpine:latest"

	// Oldest runtime versions with reliable rootless support for the
	// flag set we generate.
	minPodmanVersion = "3.0.0"
	minDockerVersion = "20.10.0"
)

// containerConfig tunes the container backend beyond what the policy
// expresses.
type containerConfig struct {
	// Runtime is the container CLI to use. Empty means detect, podman
	// preferred for its rootless-first design.
	Runtime string

	// Image is the container image the command runs in.
	Image string
}

func defaultContainerConfig() containerConfig {
	return containerConfig{Image: defaultContainerImage}
}

// containerSandbox executes commands inside ephemeral rootless containers.
// Every Execute call gets its own container name (instance id plus a
// per-call token) so concurrent calls on one instance never race on a
// shared named resource.
type containerSandbox struct {
	policy  sandbox.Policy
	config  containerConfig
	runtime string

	mu      sync.Mutex
	scratch *sandbox.Scratch
	active  map[string]struct{}
}

func newContainerSandbox(policy sandbox.Policy, config containerConfig) (*containerSandbox, error) {
	runtime := config.Runtime
	if runtime == "" {
		runtime = detectContainerRuntime()
	}

	if runtime == "" {
		return nil, fmt.Errorf("no container runtime found (install podman or docker)")
	}

	if config.Image == "" {
		config.Image = defaultContainerImage
	}

	return &containerSandbox{
		policy:  policy.WithDefaults(),
		config:  config,
		runtime: runtime,
		active:  make(map[string]struct{}),
	}, nil
}

func (c *containerSandbox) Name() string {
	return BackendContainer
}

func (c *containerSandbox) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializeLocked()
}

func (c *containerSandbox) initializeLocked() error {
	if c.scratch != nil {
		return nil
	}

	scratch, err := sandbox.NewScratch("cage")
	if err != nil {
		return err
	}

	c.scratch = scratch
	log.Debugf("container sandbox %s initialized with runtime %s", scratch.ID(), c.runtime)
	return nil
}

func (c *containerSandbox) Execute(ctx context.Context, req sandbox.ExecutionRequest) *sandbox.ExecutionResult {
	start := time.Now()

	c.mu.Lock()
	if err := c.initializeLocked(); err != nil {
		c.mu.Unlock()
		return sandbox.SpawnFailure(err, time.Since(start))
	}

	name := fmt.Sprintf("%s-%s", c.scratch.ID(), c.scratch.CallToken())
	c.active[name] = struct{}{}
	scratch := c.scratch
	c.mu.Unlock()

	argv := []string{c.runtime}
	argv = append(argv, buildContainerRunArgs(c.runtime, c.config.Image, name, scratch.Workspace(), &c.policy, req)...)
	argv = append(argv, req.Command)
	argv = append(argv, req.Args...)

	log.Debugf("container sandbox executing %s in %s", req.Command, name)

	result := driver.Run(ctx, driver.Spec{
		Argv:           argv,
		Stdin:          req.Stdin,
		Timeout:        c.policy.Timeout,
		MaxOutputBytes: c.policy.MaxOutputBytes,
		OnTimeout: func() {
			c.forceRemove(name)
		},
	})

	// Safety net: --rm does not fire on OOM kill or client disconnect
	// races, so always force-remove after the run.
	c.forceRemove(name)

	c.mu.Lock()
	delete(c.active, name)
	c.mu.Unlock()

	return result
}

func (c *containerSandbox) Cleanup() error {
	c.mu.Lock()
	names := make([]string, 0, len(c.active))
	for name := range c.active {
		names = append(names, name)
	}
	c.active = make(map[string]struct{})
	scratch := c.scratch
	c.mu.Unlock()

	for _, name := range names {
		c.forceRemove(name)
	}

	if scratch != nil {
		if err := scratch.Remove(); err != nil {
			log.Warnf("container sandbox: failed to remove scratch directory: %v", err)
		}
	}

	return nil
}

// forceRemove removes a container by name. Best-effort: "no such
// container" is the common case when --rm already cleaned up.
func (c *containerSandbox) forceRemove(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.runtime, "rm", "-f", name).CombinedOutput()
	if err != nil && !strings.Contains(strings.ToLower(string(out)), "no such container") {
		log.Debugf("container sandbox: %s rm -f %s failed: %v", c.runtime, name, err)
	}
}

// buildContainerRunArgs translates the policy and request into the
// runtime's `run` argument list. The command itself is not included.
func buildContainerRunArgs(runtime, image, name, workspace string, policy *sandbox.Policy, req sandbox.ExecutionRequest) []string {
	memory := strconv.FormatInt(policy.MemoryBytes(), 10)

	args := []string{
		"run", "--rm",
		"--name", name,

		// Hardening applied regardless of policy.
		"--cap-drop=ALL",
		"--security-opt=no-new-privileges",

		"--memory=" + memory,
		"--memory-swap=" + memory, // no swap headroom, OOM kill on exceed
		"--cpus=" + strconv.FormatFloat(policy.CPU, 'f', 2, 64),
		"--pids-limit=" + strconv.Itoa(containerPidsLimit),
	}

	if len(req.Stdin) > 0 {
		// Without --interactive the runtime wires the container's stdin
		// to /dev/null and the request payload never reaches the command.
		args = append(args, "--interactive")
	}

	switch policy.Network {
	case sandbox.NetworkNone:
		args = append(args, "--network=none")
	case sandbox.NetworkRestricted:
		// Per-destination allow-listing is not native to the runtime.
		// Podman's user-mode network stack is the closest approximation;
		// docker has none, so restricted degrades to no network there.
		if runtime == "podman" {
			args = append(args, "--network=slirp4netns")
		} else {
			args = append(args, "--network=none")
		}
	case sandbox.NetworkBridge:
		args = append(args, "--network=bridge")
	}

	if policy.ReadOnly {
		args = append(args,
			"--read-only",
			"--tmpfs", "/tmp:rw,noexec,nosuid,size=64m",
		)
	}

	args = append(args, "-v", workspace+":"+containerWorkspace)

	for _, path := range policy.AllowedPaths {
		mode := "ro"
		if !policy.ReadOnly {
			mode = "rw"
		}
		args = append(args, "-v", fmt.Sprintf("%s:%s:%s", path, path, mode))
	}

	workDir := req.WorkDir
	if workDir == "" {
		workDir = policy.WorkDir
	}
	args = append(args, "--workdir", workDir)

	for _, kv := range buildEnv(containerHome, req.Env) {
		args = append(args, "--env", kv)
	}

	args = append(args, image)
	return args
}

// containerAvailable reports whether a supported container runtime is
// installed and recent enough.
func containerAvailable() bool {
	return detectContainerRuntime() != ""
}

func detectContainerRuntime() string {
	for _, runtime := range []string{"podman", "docker"} {
		if !commandExists(runtime) {
			continue
		}

		if runtimeVersionSupported(runtime) {
			return runtime
		}
	}

	return ""
}

var versionPattern = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// runtimeVersionSupported gates the probe on the oldest runtime version
// whose rootless mode supports our flag set. An unparseable version is
// treated as supported; the run itself will surface real incompatibility.
func runtimeVersionSupported(runtime string) bool {
	out, err := exec.Command(runtime, "--version").Output()
	if err != nil {
		return false
	}

	match := versionPattern.FindString(string(out))
	if match == "" {
		return true
	}

	version, err := semver.NewVersion(match)
	if err != nil {
		return true
	}

	minimum := minPodmanVersion
	if runtime == "docker" {
		minimum = minDockerVersion
	}

	return !version.LessThan(semver.MustParse(minimum))
}

package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"runtime"
	"strings"

	"github.com/expressjs/perf-runner/internal/record"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostInfo describes the machine a workload runs on, using the platform and
// architecture names Node.js reports.
type HostInfo struct {
	Platform string
	Arch     string
	CPUs     []CPU
	// TotalMem is zero when it could not be determined.
	TotalMem uint64
}

// CPU is one logical processor in the shape of an os.cpus() entry.
type CPU struct {
	Model string   `json:"model"`
	Speed int      `json:"speed"`
	Times CPUTimes `json:"times"`
}

// CPUTimes are cumulative milliseconds spent in each mode.
type CPUTimes struct {
	User uint64 `json:"user"`
	Nice uint64 `json:"nice"`
	Sys  uint64 `json:"sys"`
	Idle uint64 `json:"idle"`
	IRQ  uint64 `json:"irq"`
}

var nodePlatforms = map[string]string{
	"windows": "win32",
	"solaris": "sunos",
	"illumos": "sunos",
}

var nodeArchs = map[string]string{
	"amd64":    "x64",
	"386":      "ia32",
	"ppc64le":  "ppc64",
	"mips64le": "mips64el",
	"mipsle":   "mipsel",
	"loong64":  "loong64",
}

// LocalHost inspects the current machine. The returned info is usable even
// when an error is reported; fields that could not be read stay empty.
func LocalHost(ctx context.Context) (HostInfo, error) {
	host := HostInfo{
		Platform: NodePlatform(runtime.GOOS),
		Arch:     NodeArch(runtime.GOARCH),
	}

	var errs []error

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("reading memory: %w", err))
	} else {
		host.TotalMem = vm.Total
	}

	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("reading cpu info: %w", err))
	}

	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		errs = append(errs, fmt.Errorf("reading cpu times: %w", err))
	}

	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil || count <= 0 {
		count = runtime.NumCPU()
	}

	host.CPUs = cpuDescriptors(infos, times, count)

	return host, errors.Join(errs...)
}

// cpuDescriptors builds count entries. Platforms that report a single info
// record for every core share it across all entries.
func cpuDescriptors(infos []cpu.InfoStat, times []cpu.TimesStat, count int) []CPU {
	cpus := make([]CPU, 0, count)

	for i := range count {
		var desc CPU

		if len(infos) > 0 {
			info := infos[min(i, len(infos)-1)]
			desc.Model = strings.TrimSpace(info.ModelName)
			desc.Speed = int(math.Round(info.Mhz))
		}

		if i < len(times) {
			t := times[i]
			desc.Times = CPUTimes{
				User: millis(t.User),
				Nice: millis(t.Nice),
				Sys:  millis(t.System),
				Idle: millis(t.Idle),
				IRQ:  millis(t.Irq),
			}
		}

		cpus = append(cpus, desc)
	}

	return cpus
}

func millis(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}

	return uint64(math.Round(seconds * 1000))
}

// NodePlatform maps a GOOS value to the name os.platform() returns.
func NodePlatform(goos string) string {
	if name, ok := nodePlatforms[goos]; ok {
		return name
	}

	return goos
}

// NodeArch maps a GOARCH value to the name os.arch() returns.
func NodeArch(goarch string) string {
	if name, ok := nodeArchs[goarch]; ok {
		return name
	}

	return goarch
}

// Metadata renders the host as record metadata. Memory is only reported for
// the server side.
func (h HostInfo) Metadata(withMemory bool) record.HostMetadata {
	meta := record.HostMetadata{
		Platform: h.Platform,
		Arch:     h.Arch,
		CPUs:     json.RawMessage("[]"),
	}

	if len(h.CPUs) > 0 {
		if raw, err := json.Marshal(h.CPUs); err == nil {
			meta.CPUs = raw
		}
	}

	if withMemory {
		total := h.TotalMem
		meta.TotalMem = &total
	}

	return meta
}

// UnknownNodeVersion is reported when the Node.js binary cannot be queried.
const UnknownNodeVersion = "unknown"

// NodeVersion asks binary for its version, e.g. "v20.11.0".
func NodeVersion(ctx context.Context, binary string) string {
	out, err := exec.CommandContext(ctx, binary, "--version").Output() //nolint:gosec // G204: binary is operator configuration
	if err != nil {
		return UnknownNodeVersion
	}

	version := strings.TrimSpace(string(out))
	if version == "" {
		return UnknownNodeVersion
	}

	return version
}

// Package sampler reads host memory and CPU usage through gopsutil.
package sampler

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"gitlab.com/sysmon-2025.net/internal/agent"
)

var _ agent.Sampler = (*HostSampler)(nil)

// HostSampler samples the local machine.
type HostSampler struct{}

func NewHostSampler() *HostSampler {
	return &HostSampler{}
}

// Sample returns memory in bytes and per-core CPU usage since the previous call.
func (s *HostSampler) Sample(ctx context.Context) (*agent.Sample, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu usage: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory usage: %w", err)
	}

	return &agent.Sample{
		TotalMemory: vm.Total,
		UsedMemory:  vm.Used,
		CPUPercents: percents,
	}, nil
}

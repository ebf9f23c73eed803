package accel

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/biwstack/biw-advisor/advisor"
)

// Breakdown is the per-stage latency of one accelerator run, in milliseconds.
type Breakdown struct {
	Iterations     int     `json:"iterations" yaml:"iterations"`
	CreateBuffer   float64 `json:"create_buffer_ms" yaml:"create_buffer_ms"`
	AddressMap     float64 `json:"address_map_ms" yaml:"address_map_ms"`
	SSDToDevice    float64 `json:"ssd_to_device_ms" yaml:"ssd_to_device_ms"`
	SetKernel      float64 `json:"set_kernel_ms" yaml:"set_kernel_ms"`
	Kernel         float64 `json:"kernel_ms" yaml:"kernel_ms"`
	KernelOverhead float64 `json:"kernel_overhead_ms" yaml:"kernel_overhead_ms"`
	DeviceToHost   float64 `json:"device_to_host_ms" yaml:"device_to_host_ms"`
}

// Total sums every stage.
func (b Breakdown) Total() float64 {
	return b.CreateBuffer + b.AddressMap + b.SSDToDevice + b.SetKernel +
		b.Kernel + b.KernelOverhead + b.DeviceToHost
}

// Model predicts accelerator execution time for one device profile.
type Model struct {
	profile Profile
	cores   int
}

// NewModel returns a Model for p. It panics if the profile fits no core:
// that is a configuration bug, not a runtime condition.
func NewModel(p Profile) *Model {
	cores := p.Cores()
	if cores < 1 {
		panic(fmt.Sprintf("accel: profile budget fits %d kernel cores", cores))
	}
	return &Model{profile: p, cores: cores}
}

// Cores returns the kernel core count derived from the profile.
func (m *Model) Cores() int { return m.cores }

// HWTime returns the predicted end-to-end accelerator time in milliseconds
// for scanning pages pages of a dataset of the given feature class.
func (m *Model) HWTime(class advisor.QueryClass, features advisor.FeatureClass, pages float64) float64 {
	b := m.Breakdown(class, features, pages)
	total := b.Total()
	logrus.Debugf("[accel] %s/%s pages=%.0f iterations=%d createbuf=%.3f ssd=%.3f kernel=%.3f host=%.3f total=%.3fms",
		class, features, pages, b.Iterations, b.CreateBuffer, b.SSDToDevice, b.Kernel, b.DeviceToHost, total)
	return total
}

// Breakdown computes every stage of HWTime. Unknown class or feature
// combinations panic; callers validate them first.
func (m *Model) Breakdown(class advisor.QueryClass, features advisor.FeatureClass, pages float64) Breakdown {
	p := &m.profile
	cyc, ok := p.Cycles[features][class]
	if !ok {
		panic(fmt.Sprintf("accel: no cycle counts for class %q with %q features", class, features))
	}
	if pages < 0 || math.IsNaN(pages) {
		pages = 0
	}

	macroPages := p.MacroBytes / p.PageSize
	// one page more than requested is always transferred
	dbSize := (math.Floor(pages) + 1) * p.PageSize
	hi := math.Floor(dbSize / p.MacroBytes)
	last := dbSize - hi*p.MacroBytes
	lastPages := math.Floor(last / p.PageSize)
	iters := hi + 1

	var b Breakdown
	b.Iterations = int(iters)
	b.AddressMap = p.AddressMapMs * iters
	b.SetKernel = p.SetKernelMs * iters

	b.CreateBuffer = hi*(m.createBufferMs(p.MacroBytes)+p.CreateBufferStepMs) + m.createBufferMs(last)
	if hi > 0 {
		b.CreateBuffer += p.CreateBufferStepMs
	}

	b.SSDToDevice = hi*transferMs(p.MacroBytes, p.SSDToDeviceBW) + transferMs(last, p.SSDToDeviceBW)

	scalar := class.HasScalarOutput()
	if scalar {
		b.DeviceToHost = iters * transferMs(p.AggregateOutputBytes, p.DeviceToHostBW)
	} else {
		full := macroPages * p.OutputBytesPerPage
		rest := math.Max(0, (pages-hi*macroPages)*p.OutputBytesPerPage)
		b.DeviceToHost = hi*transferMs(full, p.DeviceToHostBW) + transferMs(rest, p.DeviceToHostBW)
	}

	compute := hi*cyc.Compute*macroPages + cyc.Compute*lastPages
	var dma float64
	if scalar {
		dma = iters * cyc.DMA
	} else {
		dma = hi*cyc.DMA*macroPages + cyc.DMA*lastPages
	}
	cores := float64(m.cores)
	cyclesPerMs := p.ClockMHz * 1e3
	b.Kernel = (math.Floor(compute/cores) + math.Floor(dma/cores)) / cyclesPerMs
	b.KernelOverhead = b.Kernel * p.KernelOverhead
	return b
}

// createBufferMs grows proportionally past the largest breakpoint.
func (m *Model) createBufferMs(size float64) float64 {
	table := m.profile.CreateBufferMs
	top := table[len(table)-1]
	if size > top.Bytes {
		return top.Value * size / top.Bytes
	}
	return interpolate(table, size)
}

// transferMs moves size bytes at the table's effective bandwidth.
func transferMs(size float64, bandwidth []Breakpoint) float64 {
	if size <= 0 {
		return 0
	}
	return size / interpolate(bandwidth, size) * 1000
}

// interpolate is piecewise linear in size and flat outside the table.
func interpolate(table []Breakpoint, size float64) float64 {
	if size <= table[0].Bytes {
		return table[0].Value
	}
	for i := 1; i < len(table); i++ {
		lo, hi := table[i-1], table[i]
		if size <= hi.Bytes {
			frac := (size - lo.Bytes) / (hi.Bytes - lo.Bytes)
			return lo.Value + frac*(hi.Value-lo.Value)
		}
	}
	return table[len(table)-1].Value
}

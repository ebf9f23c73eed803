// Package accel is the closed-form cost model of a near-storage FPGA
// accelerator. A Profile carries the device's resource budget, host timing
// tables and per-page cycle counts; a Model turns a page count into a
// predicted end-to-end time.
package accel

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/biwstack/biw-advisor/advisor"
)

//go:embed profiles.yaml
var builtinProfiles []byte

// Resources is an amount of each FPGA resource kind.
type Resources struct {
	LUT  float64 `yaml:"lut"`
	FF   float64 `yaml:"ff"`
	URAM float64 `yaml:"uram"`
	BRAM float64 `yaml:"bram"`
	DSP  float64 `yaml:"dsp"`
}

func (r Resources) slice() [5]float64 {
	return [5]float64{r.LUT, r.FF, r.URAM, r.BRAM, r.DSP}
}

var resourceNames = [5]string{"lut", "ff", "uram", "bram", "dsp"}

// Breakpoint is one row of a size-keyed timing table.
type Breakpoint struct {
	Bytes float64 `yaml:"bytes"`
	Value float64 `yaml:"value"`
}

// Cycles is the per-page cost of a kernel.
type Cycles struct {
	Compute float64 `yaml:"compute"`
	DMA     float64 `yaml:"dma"`
}

// Profile describes one accelerator device.
type Profile struct {
	ClockMHz   float64 `yaml:"clock_mhz"`
	PageSize   float64 `yaml:"page_size"`
	MacroBytes float64 `yaml:"macro_bytes"` // bytes moved per host iteration

	Budget    Resources `yaml:"budget"`
	CoreConst Resources `yaml:"core_const"`
	CoreVar   Resources `yaml:"core_var"`

	AddressMapMs         float64 `yaml:"address_map_ms"`
	SetKernelMs          float64 `yaml:"set_kernel_ms"`
	CreateBufferStepMs   float64 `yaml:"create_buffer_step_ms"`
	KernelOverhead       float64 `yaml:"kernel_overhead"`
	AggregateOutputBytes float64 `yaml:"aggregate_output_bytes"`
	OutputBytesPerPage   float64 `yaml:"output_bytes_per_page"`

	// Tables are sorted by ascending Bytes.
	CreateBufferMs []Breakpoint `yaml:"create_buffer_ms"`
	SSDToDeviceBW  []Breakpoint `yaml:"ssd_to_device_bw"`
	DeviceToHostBW []Breakpoint `yaml:"device_to_host_bw"`

	Cycles map[advisor.FeatureClass]map[advisor.QueryClass]Cycles `yaml:"cycles"`
}

// Cores returns how many kernel cores fit in the budget: the minimum over
// all resource kinds of floor((budget − const) / var).
func (p *Profile) Cores() int {
	budget, fixed, per := p.Budget.slice(), p.CoreConst.slice(), p.CoreVar.slice()
	cores := math.MaxInt
	for i := range budget {
		n := int(math.Floor((budget[i] - fixed[i]) / per[i]))
		if n < cores {
			cores = n
		}
	}
	return cores
}

// ParseProfiles decodes a YAML map of profile name to Profile.
// Unknown fields are rejected.
func ParseProfiles(data []byte) (map[string]Profile, error) {
	var profiles map[string]Profile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&profiles); err != nil {
		return nil, fmt.Errorf("parse profiles YAML: %w", err)
	}
	return profiles, nil
}

// LoadProfiles returns the embedded profiles, overlaid with the profiles of
// path when it is non-empty.
func LoadProfiles(path string) (map[string]Profile, error) {
	profiles, err := ParseProfiles(builtinProfiles)
	if err != nil {
		return nil, fmt.Errorf("builtin profiles: %w", err)
	}
	if path == "" {
		return profiles, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %q: %w", path, err)
	}
	extra, err := ParseProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("profiles %q: %w", path, err)
	}
	for name, p := range extra {
		profiles[name] = p
	}
	return profiles, nil
}

// GetProfile loads the profiles and returns the named one, validated.
func GetProfile(path, name string) (Profile, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p, ok := profiles[name]
	if !ok {
		available := make([]string, 0, len(profiles))
		for k := range profiles {
			available = append(available, k)
		}
		sort.Strings(available)
		return Profile{}, fmt.Errorf("device %q not found in profiles (available: %v)", name, available)
	}
	if err := ValidateProfile(p); err != nil {
		return Profile{}, fmt.Errorf("device %q: %w", name, err)
	}
	return p, nil
}

func invalidPositive(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v <= 0
}

// ValidateProfile checks every field and reports all problems at once.
func ValidateProfile(p Profile) error {
	var problems []string

	if invalidPositive(p.ClockMHz) {
		problems = append(problems, fmt.Sprintf("clock_mhz must be a valid positive number, got %v", p.ClockMHz))
	}
	if invalidPositive(p.PageSize) {
		problems = append(problems, fmt.Sprintf("page_size must be a valid positive number, got %v", p.PageSize))
	}
	if invalidPositive(p.MacroBytes) || (p.PageSize > 0 && math.Mod(p.MacroBytes, p.PageSize) != 0) {
		problems = append(problems, fmt.Sprintf("macro_bytes must be a positive multiple of page_size, got %v", p.MacroBytes))
	}
	per := p.CoreVar.slice()
	for i, v := range per {
		if invalidPositive(v) {
			problems = append(problems, fmt.Sprintf("core_var.%s must be a valid positive number, got %v", resourceNames[i], v))
		}
	}
	if len(problems) == 0 && p.Cores() < 1 {
		problems = append(problems, "budget leaves room for no kernel core")
	}
	if p.KernelOverhead < 0 {
		problems = append(problems, fmt.Sprintf("kernel_overhead must be >= 0, got %v", p.KernelOverhead))
	}
	problems = append(problems, validateTable("create_buffer_ms", p.CreateBufferMs)...)
	problems = append(problems, validateTable("ssd_to_device_bw", p.SSDToDeviceBW)...)
	problems = append(problems, validateTable("device_to_host_bw", p.DeviceToHostBW)...)

	for _, fc := range advisor.FeatureClasses {
		row, ok := p.Cycles[fc]
		if !ok {
			problems = append(problems, fmt.Sprintf("cycles.%s is missing", fc))
			continue
		}
		for _, qc := range advisor.QueryClasses {
			if _, ok := row[qc]; !ok {
				problems = append(problems, fmt.Sprintf("cycles.%s.%s is missing", fc, qc))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid device profile: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateTable(name string, table []Breakpoint) []string {
	if len(table) == 0 {
		return []string{name + " must have at least one breakpoint"}
	}
	var problems []string
	for i, bp := range table {
		if invalidPositive(bp.Bytes) || invalidPositive(bp.Value) {
			problems = append(problems, fmt.Sprintf("%s[%d] must have positive bytes and value", name, i))
		}
		if i > 0 && bp.Bytes <= table[i-1].Bytes {
			problems = append(problems, fmt.Sprintf("%s[%d] bytes must be ascending", name, i))
		}
	}
	return problems
}

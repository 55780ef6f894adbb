package nn

import (
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Device describes the single compute context the training loop runs on.
type Device struct {
	Name     string
	Vendor   string
	Cores    int
	Threads  int
	Features []string
}

// DescribeDevice reports the host CPU. Everything in this module runs on it.
func DescribeDevice() Device {
	d := Device{
		Name:    strings.TrimSpace(cpuid.CPU.BrandName),
		Vendor:  cpuid.CPU.VendorString,
		Cores:   cpuid.CPU.PhysicalCores,
		Threads: cpuid.CPU.LogicalCores,
	}
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.SSE2, "sse2"},
		{cpuid.AVX, "avx"},
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.ASIMD, "asimd"},
	} {
		if cpuid.CPU.Supports(f.id) {
			d.Features = append(d.Features, f.name)
		}
	}
	return d
}

func (d Device) String() string {
	name := d.Name
	if name == "" {
		name = "cpu"
	}
	return fmt.Sprintf("%s (%d cores, %d threads, %s)", name, d.Cores, d.Threads, strings.Join(d.Features, ","))
}

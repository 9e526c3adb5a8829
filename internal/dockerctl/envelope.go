package dockerctl

import (
	"github.com/docker/docker/api/types/blkiodev"
	"github.com/docker/docker/api/types/container"
)

// Envelope is the fixed resource envelope applied to every container the
// harness starts: 6 CPU cores, 12GiB memory (and mem+swap), 32768 pids,
// a blkio weight of 200, 30MiB/s and 2000 IOPS read+write on the
// configured rootfs device, DNS 223.5.5.5, and TZ=Asia/Shanghai.
type Envelope struct {
	RootfsDevice string
}

const (
	cpuPeriod   = 100_000
	cpuQuota    = cpuPeriod * 6
	memLimit    = 12 * 1024 * 1024 * 1024
	pidsLimit   = 32768
	blkioWeight = 200
	ioRateBytes = 30 * 1024 * 1024
	ioRateOps   = 2000
)

// Resources builds the container.Resources block for the envelope.
func (e Envelope) Resources() container.Resources {
	pids := int64(pidsLimit)
	weight := uint16(blkioWeight)
	return container.Resources{
		CPUPeriod:         cpuPeriod,
		CPUQuota:          cpuQuota,
		Memory:            memLimit,
		MemorySwap:        memLimit,
		PidsLimit:         &pids,
		BlkioWeight:       weight,
		BlkioDeviceReadBps: []*blkiodev.ThrottleDevice{
			{Path: e.RootfsDevice, Rate: ioRateBytes},
		},
		BlkioDeviceWriteBps: []*blkiodev.ThrottleDevice{
			{Path: e.RootfsDevice, Rate: ioRateBytes},
		},
		BlkioDeviceReadIOps: []*blkiodev.ThrottleDevice{
			{Path: e.RootfsDevice, Rate: ioRateOps},
		},
		BlkioDeviceWriteIOps: []*blkiodev.ThrottleDevice{
			{Path: e.RootfsDevice, Rate: ioRateOps},
		},
	}
}

// ApplyTo applies the envelope plus the fixed DNS setting to a
// HostConfig the caller has already populated with mounts, network
// mode, etc. The timezone is not set here; it comes from EnvDefaults.
func (e Envelope) ApplyTo(hc *container.HostConfig) {
	hc.Resources = e.Resources()
	hc.DNS = []string{"223.5.5.5"}
}

// EnvDefaults is the fixed environment every envelope-bound container
// receives in addition to its own entrypoint-specific variables.
func EnvDefaults() []string {
	return []string{"TZ=Asia/Shanghai"}
}

package dockerctl

import (
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourcesFixedEnvelope(t *testing.T) {
	e := Envelope{RootfsDevice: "/dev/sda1"}
	res := e.Resources()

	assert.EqualValues(t, 100_000, res.CPUPeriod)
	assert.EqualValues(t, 600_000, res.CPUQuota)
	assert.EqualValues(t, 12*1024*1024*1024, res.Memory)
	assert.EqualValues(t, res.Memory, res.MemorySwap)
	require.NotNil(t, res.PidsLimit)
	assert.EqualValues(t, 32768, *res.PidsLimit)
	assert.EqualValues(t, 200, res.BlkioWeight)

	require.Len(t, res.BlkioDeviceReadBps, 1)
	assert.Equal(t, "/dev/sda1", res.BlkioDeviceReadBps[0].Path)
	assert.EqualValues(t, 30*1024*1024, res.BlkioDeviceReadBps[0].Rate)

	require.Len(t, res.BlkioDeviceWriteIOps, 1)
	assert.EqualValues(t, 2000, res.BlkioDeviceWriteIOps[0].Rate)
}

func TestApplyToSetsDNSAndResources(t *testing.T) {
	e := Envelope{RootfsDevice: "/dev/sda1"}
	hc := &container.HostConfig{}

	e.ApplyTo(hc)

	assert.Equal(t, []string{"223.5.5.5"}, hc.DNS)
	assert.EqualValues(t, 600_000, hc.Resources.CPUQuota)
}

func TestEnvDefaults(t *testing.T) {
	assert.Equal(t, []string{"TZ=Asia/Shanghai"}, EnvDefaults())
}

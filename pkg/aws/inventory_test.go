package aws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const describeInstancesFixture = `{
	"Reservations": [
		{
			"Instances": [
				{
					"InstanceId": "i-0stopped1",
					"InstanceType": "t3.medium",
					"PrivateIpAddress": "10.0.3.10",
					"State": {"Name": "stopped"},
					"Placement": {"AvailabilityZone": "eu-west-1c"},
					"Tags": [
						{"Key": "Name", "Value": "worker"},
						{"Key": "Env", "Value": "prod"}
					]
				},
				{
					"InstanceId": "i-0running2",
					"InstanceType": "t3.micro",
					"PrivateIpAddress": "10.0.1.21",
					"PublicIpAddress": "54.10.10.21",
					"State": {"Name": "running"},
					"Placement": {"AvailabilityZone": "eu-west-1a"},
					"Tags": [{"Key": "Name", "Value": "bastion"}]
				}
			]
		},
		{
			"Instances": [
				{
					"InstanceId": "i-0running1",
					"InstanceType": "t3.small",
					"PrivateIpAddress": "10.0.2.34",
					"State": {"Name": "running"},
					"Placement": {"AvailabilityZone": "eu-west-1b"}
				}
			]
		}
	]
}`

func TestParseDescribeInstances(t *testing.T) {
	instances, err := parseDescribeInstances([]byte(describeInstancesFixture))
	require.NoError(t, err)
	require.Len(t, instances, 3)

	// running first, then sorted by display name; the untagged instance
	// falls back to its instance id
	assert.Equal(t, "i-0running2", instances[0].InstanceID)
	assert.Equal(t, "bastion", instances[0].Name)
	assert.Equal(t, "i-0running1", instances[1].InstanceID)
	assert.Empty(t, instances[1].Name)
	assert.Equal(t, "i-0stopped1", instances[2].InstanceID)

	bastion := instances[0]
	assert.Equal(t, "running", bastion.State)
	assert.Equal(t, "t3.micro", bastion.InstanceType)
	assert.Equal(t, "10.0.1.21", bastion.PrivateIP)
	assert.Equal(t, "54.10.10.21", bastion.PublicIP)
	assert.Equal(t, "eu-west-1a", bastion.AvailabilityZone)

	// only the Name tag feeds the display name
	assert.Equal(t, "worker", instances[2].Name)
}

func TestParseDescribeInstancesEmpty(t *testing.T) {
	instances, err := parseDescribeInstances([]byte(`{"Reservations": []}`))
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestParseDescribeInstancesBadJSON(t *testing.T) {
	_, err := parseDescribeInstances([]byte("not json"))
	assert.Error(t, err)
}

func TestDisplayNameFallsBackToInstanceID(t *testing.T) {
	named := Instance{InstanceID: "i-0abc123", Name: "bastion"}
	assert.Equal(t, "bastion", named.DisplayName())

	unnamed := Instance{InstanceID: "i-0abc123"}
	assert.Equal(t, "i-0abc123", unnamed.DisplayName())
}

func TestMockInstancesAreStable(t *testing.T) {
	first := MockInstances("eu-west-1")
	second := MockInstances("eu-west-1")
	assert.Equal(t, first, second)

	require.NotEmpty(t, first)
	for _, inst := range first {
		assert.NotEmpty(t, inst.InstanceID)
		assert.NotEmpty(t, inst.Name)
		assert.Contains(t, inst.AvailabilityZone, "eu-west-1")
	}
}

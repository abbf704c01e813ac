package aws

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/sp1d3rx/atui/pkg/logging"
)

// CLIAvailable reports whether the aws CLI (the supervised capability) is on
// PATH. When it is not, the app serves a mock inventory and every forward
// start is refused by the supervisor.
func CLIAvailable() bool {
	_, err := exec.LookPath("aws")
	return err == nil
}

// EC2Service lists instances for one profile/region pair by shelling out to
// `aws ec2 describe-instances`. The CLI is already a hard dependency for
// sessions, so inventory goes through the same binary instead of a second SDK.
type EC2Service struct {
	Profile string
	Region  string
}

func NewEC2Service(profile, region string) EC2Service {
	if profile == "" {
		profile = DefaultProfile
	}
	if region == "" {
		region = DefaultRegion
	}
	return EC2Service{Profile: profile, Region: region}
}

// ListInstances returns pending/running/stopping/stopped instances, running
// first, then sorted by display name.
func (s EC2Service) ListInstances() ([]Instance, error) {
	cmd := exec.Command("aws", "ec2", "describe-instances",
		"--profile", s.Profile,
		"--region", s.Region,
		"--filters", "Name=instance-state-name,Values=pending,running,stopping,stopped",
		"--output", "json",
	)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("describe-instances failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("describe-instances failed: %w", err)
	}

	instances, err := parseDescribeInstances(out)
	if err != nil {
		return nil, err
	}
	logging.LogDebug("Listed %d instances from %s (%s)", len(instances), s.Region, s.Profile)
	return instances, nil
}

type describeInstancesOutput struct {
	Reservations []struct {
		Instances []struct {
			InstanceId       string
			InstanceType     string
			PrivateIpAddress string
			PublicIpAddress  string
			State            struct{ Name string }
			Placement        struct{ AvailabilityZone string }
			Tags             []struct{ Key, Value string }
		}
	}
}

func parseDescribeInstances(data []byte) ([]Instance, error) {
	var payload describeInstancesOutput
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing describe-instances output: %w", err)
	}

	var instances []Instance
	for _, reservation := range payload.Reservations {
		for _, raw := range reservation.Instances {
			inst := Instance{
				InstanceID:       raw.InstanceId,
				State:            raw.State.Name,
				InstanceType:     raw.InstanceType,
				PrivateIP:        raw.PrivateIpAddress,
				PublicIP:         raw.PublicIpAddress,
				AvailabilityZone: raw.Placement.AvailabilityZone,
			}
			if inst.State == "" {
				inst.State = "unknown"
			}
			if inst.InstanceType == "" {
				inst.InstanceType = "unknown"
			}
			for _, tag := range raw.Tags {
				if tag.Key == "Name" {
					inst.Name = tag.Value
					break
				}
			}
			instances = append(instances, inst)
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		ri, rj := instances[i].State == "running", instances[j].State == "running"
		if ri != rj {
			return ri
		}
		return strings.ToLower(instances[i].DisplayName()) < strings.ToLower(instances[j].DisplayName())
	})
	return instances, nil
}

// MockInstances backs the simulated mode used when the aws CLI is missing.
func MockInstances(region string) []Instance {
	if region == "" {
		region = DefaultRegion
	}
	shortRegion := strings.ReplaceAll(region, "-", "")
	return []Instance{
		{
			InstanceID:       fmt.Sprintf("i-%sa1b2c3d4e5f6", shortRegion),
			Name:             "demo-bastion",
			State:            "running",
			InstanceType:     "t3.micro",
			PrivateIP:        "10.0.1.21",
			PublicIP:         "54.10.10.21",
			AvailabilityZone: region + "a",
		},
		{
			InstanceID:       fmt.Sprintf("i-%s112233445566", shortRegion),
			Name:             "demo-app-01",
			State:            "running",
			InstanceType:     "t3.small",
			PrivateIP:        "10.0.2.34",
			AvailabilityZone: region + "b",
		},
		{
			InstanceID:       fmt.Sprintf("i-%s998877665544", shortRegion),
			Name:             "demo-rabbitmq",
			State:            "stopped",
			InstanceType:     "t3.medium",
			PrivateIP:        "10.0.3.10",
			AvailabilityZone: region + "c",
		},
	}
}

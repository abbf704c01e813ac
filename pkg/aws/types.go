package aws

// Instance is a read-only summary of one EC2 instance, enough to render the
// table and to build session commands against it.
type Instance struct {
	InstanceID       string
	Name             string
	State            string
	InstanceType     string
	PrivateIP        string
	PublicIP         string
	AvailabilityZone string
}

// DisplayName prefers the Name tag, falling back to the instance id.
func (i Instance) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.InstanceID
}

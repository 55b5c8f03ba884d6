package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// appID keys the protected machine ID, so the raw ID is never sent.
const appID = "rtt.go"

// MachineID retrieves an ID identifying the machine. The raw machine ID is
// hashed with an application key; the host name is used if neither is
// available.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil {
		return id
	}
	glog.Warningf("machine id: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}

// DefaultClientID is "rtt-" followed by the first 12 characters of
// MachineID.
func DefaultClientID() string {
	id := MachineID()
	if len(id) > 12 {
		id = id[:12]
	}
	return "rtt-" + id
}

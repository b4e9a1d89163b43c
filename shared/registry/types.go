// shared/registry/types.go
package registry

// InstanceInfo represents the details of a registered engine instance.
// This information is stored in Redis and used to decide which instance
// settles which team during the global accrual tick.
type InstanceInfo struct {
	InstanceID  string `json:"instanceId"`  // Unique ID for this specific instance
	ServiceType string `json:"serviceType"` // Type of service (e.g., "territory-engine")
	IP          string `json:"ip"`          // IP address where the service is listening
	Port        int    `json:"port"`        // Port where the service is listening
	LastSeen    int64  `json:"lastSeen"`    // Unix seconds of the last heartbeat
}

// RedisRegistryHashPrefix is the prefix used for Redis hash keys that store
// instance registration data. The full key format is "services:<serviceType>".
const RedisRegistryHashPrefix = "services:"

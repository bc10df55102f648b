// Package protocol provides implementations for the Kafka wire protocol
package protocol

import "golang.org/x/exp/constraints"

// APIKey identifies a Kafka RPC
type APIKey int16

// API Keys for Kafka protocol
const (
	FetchKey                   APIKey = 1
	ApiVersionsKey             APIKey = 18
	DescribeTopicPartitionsKey APIKey = 75
)

func (k APIKey) String() string {
	switch k {
	case FetchKey:
		return "Fetch"
	case ApiVersionsKey:
		return "ApiVersions"
	case DescribeTopicPartitionsKey:
		return "DescribeTopicPartitions"
	default:
		return "Unknown"
	}
}

// API version ranges
const (
	ApiVersionsMinVersion   int16 = 0
	ApiVersionsMaxVersion   int16 = 4
	FetchMinVersion         int16 = 0
	FetchMaxVersion         int16 = 16
	DescribeTopicMinVersion int16 = 0
	DescribeTopicMaxVersion int16 = 0
)

// First version of each API that uses the flexible (compact) encoding
const (
	apiVersionsFirstFlexible int16 = 3
	fetchFirstFlexible       int16 = 12
	describeFirstFlexible    int16 = 0
)

// TopicAuthorizedOps is the authorized operations bitfield reported for described topics
const TopicAuthorizedOps int32 = 0x00000df8

// ApiKeyDescriptor is one row of the capability table advertised by ApiVersions
type ApiKeyDescriptor struct {
	APIKey     APIKey
	MinVersion int16
	MaxVersion int16
}

// Supports reports whether version falls inside the descriptor's range
func (d ApiKeyDescriptor) Supports(version int16) bool {
	return inRange(version, d.MinVersion, d.MaxVersion)
}

// Clamp returns the nearest supported version. Out-of-range requests are
// parsed and answered using the layout of the returned version.
func (d ApiKeyDescriptor) Clamp(version int16) int16 {
	return max(d.MinVersion, min(version, d.MaxVersion))
}

// supportedAPIs is fixed for the lifetime of the process
var supportedAPIs = [...]ApiKeyDescriptor{
	{APIKey: ApiVersionsKey, MinVersion: ApiVersionsMinVersion, MaxVersion: ApiVersionsMaxVersion},
	{APIKey: FetchKey, MinVersion: FetchMinVersion, MaxVersion: FetchMaxVersion},
	{APIKey: DescribeTopicPartitionsKey, MinVersion: DescribeTopicMinVersion, MaxVersion: DescribeTopicMaxVersion},
}

// SupportedAPIs returns a copy of the capability table
func SupportedAPIs() []ApiKeyDescriptor {
	out := make([]ApiKeyDescriptor, len(supportedAPIs))
	copy(out, supportedAPIs[:])
	return out
}

// LookupAPI returns the capability row for key
func LookupAPI(key APIKey) (ApiKeyDescriptor, bool) {
	for _, d := range supportedAPIs {
		if d.APIKey == key {
			return d, true
		}
	}
	return ApiKeyDescriptor{}, false
}

// IsFlexible reports whether the given API version uses compact encodings and
// tagged fields, which also selects request header v2 and response header v1
func IsFlexible(key APIKey, version int16) bool {
	switch key {
	case ApiVersionsKey:
		return version >= apiVersionsFirstFlexible
	case FetchKey:
		return version >= fetchFirstFlexible
	case DescribeTopicPartitionsKey:
		return version >= describeFirstFlexible
	default:
		return false
	}
}

func inRange[T constraints.Integer](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

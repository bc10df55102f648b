package kafka

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnknownTopic is returned by a MetadataStore for topics it does not hold
var ErrUnknownTopic = errors.New("unknown topic")

// TopicMetadata describes one topic held by a MetadataStore
type TopicMetadata struct {
	Name       string
	TopicID    uuid.UUID
	IsInternal bool
	Partitions []PartitionMetadata
}

// PartitionMetadata is the leadership state of one partition
type PartitionMetadata struct {
	Index       int32
	LeaderID    int32
	LeaderEpoch int32
	Replicas    []int32
	ISR         []int32
}

// MetadataStore resolves topic names to their metadata
type MetadataStore interface {
	DescribeTopic(ctx context.Context, name string) (TopicMetadata, error)
}

// PartitionRead is the result of reading one partition
type PartitionRead struct {
	HighWatermark    int64
	LastStableOffset int64
	LogStartOffset   int64
	Records          []byte
}

// TopicRef names a topic the way the request did: by name before Fetch v13,
// by id after
type TopicRef struct {
	Name string
	ID   uuid.UUID
}

func (t TopicRef) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID.String()
}

// LogReader reads record batches from a partition
type LogReader interface {
	ReadPartition(ctx context.Context, topic TopicRef, partition int32, offset int64, maxBytes int32) (PartitionRead, error)
}

// emptyMetadata knows no topics
type emptyMetadata struct{}

func (emptyMetadata) DescribeTopic(_ context.Context, name string) (TopicMetadata, error) {
	return TopicMetadata{}, errors.Wrapf(ErrUnknownTopic, "topic %q", name)
}

// emptyLog holds no records; every partition reads as empty at offset zero
type emptyLog struct{}

func (emptyLog) ReadPartition(context.Context, TopicRef, int32, int64, int32) (PartitionRead, error) {
	return PartitionRead{Records: []byte{}}, nil
}

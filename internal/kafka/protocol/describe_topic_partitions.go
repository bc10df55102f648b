package protocol

import "github.com/google/uuid"

// Cursor is the pagination token of DescribeTopicPartitions. On the wire it
// is a nullable struct: an int8 marker (-1 null, 1 present) followed by the
// fields and a tag buffer.
type Cursor struct {
	TopicName      string
	PartitionIndex int32
}

func decodeCursor(r *Reader) (*Cursor, error) {
	marker, err := r.Int8()
	if err != nil || marker < 0 {
		return nil, err
	}
	c := &Cursor{}
	if c.TopicName, err = r.String(Compact); err != nil {
		return nil, err
	}
	if c.PartitionIndex, err = r.Int32(); err != nil {
		return nil, err
	}
	if err = r.TagBuffer(); err != nil {
		return nil, err
	}
	return c, nil
}

func encodeCursor(w *Writer, c *Cursor) {
	if c == nil {
		w.Int8(-1)
		return
	}
	w.Int8(1)
	w.String(Compact, c.TopicName)
	w.Int32(c.PartitionIndex)
	w.TagBuffer()
}

// DescribeTopicPartitionsRequest names the topics to describe. Only v0 exists.
type DescribeTopicPartitionsRequest struct {
	Topics                 []string
	ResponsePartitionLimit int32
	Cursor                 *Cursor
}

func (*DescribeTopicPartitionsRequest) APIKey() APIKey { return DescribeTopicPartitionsKey }

func (req *DescribeTopicPartitionsRequest) Decode(r *Reader, _ int16) error {
	var err error
	req.Topics, err = ReadArray(r, Compact, func(r *Reader) (string, error) {
		name, err := r.String(Compact)
		if err != nil {
			return "", err
		}
		return name, r.TagBuffer()
	})
	if err != nil {
		return err
	}
	if req.ResponsePartitionLimit, err = r.Int32(); err != nil {
		return err
	}
	if req.Cursor, err = decodeCursor(r); err != nil {
		return err
	}
	return r.TagBuffer()
}

// DescribeTopicPartitionsResponse describes each requested topic
type DescribeTopicPartitionsResponse struct {
	ThrottleTimeMs int32
	Topics         []TopicDescriptor
	NextCursor     *Cursor
}

// TopicDescriptor is one described topic
type TopicDescriptor struct {
	ErrorCode            int16
	Name                 string
	TopicID              uuid.UUID
	IsInternal           bool
	Partitions           []PartitionDescriptor
	AuthorizedOperations int32
}

// PartitionDescriptor is the leadership and replica state of one partition
type PartitionDescriptor struct {
	ErrorCode              int16
	PartitionIndex         int32
	LeaderID               int32
	LeaderEpoch            int32
	ReplicaNodes           []int32
	IsrNodes               []int32
	EligibleLeaderReplicas []int32
	LastKnownELR           []int32
	OfflineReplicas        []int32
}

func (*DescribeTopicPartitionsResponse) APIKey() APIKey { return DescribeTopicPartitionsKey }

func (resp *DescribeTopicPartitionsResponse) Encode(w *Writer, _ int16) {
	w.Int32(resp.ThrottleTimeMs)
	WriteArray(w, Compact, resp.Topics, encodeTopicDescriptor)
	encodeCursor(w, resp.NextCursor)
	w.TagBuffer()
}

func encodeTopicDescriptor(w *Writer, t TopicDescriptor) {
	w.Int16(t.ErrorCode)
	w.String(Compact, t.Name)
	w.UUID(t.TopicID)
	w.Bool(t.IsInternal)
	WriteArray(w, Compact, t.Partitions, encodePartitionDescriptor)
	w.Int32(t.AuthorizedOperations)
	w.TagBuffer()
}

func encodePartitionDescriptor(w *Writer, p PartitionDescriptor) {
	w.Int16(p.ErrorCode)
	w.Int32(p.PartitionIndex)
	w.Int32(p.LeaderID)
	w.Int32(p.LeaderEpoch)
	WriteArray(w, Compact, p.ReplicaNodes, writeInt32)
	WriteArray(w, Compact, p.IsrNodes, writeInt32)
	WriteArray(w, Compact, p.EligibleLeaderReplicas, writeInt32)
	WriteArray(w, Compact, p.LastKnownELR, writeInt32)
	WriteArray(w, Compact, p.OfflineReplicas, writeInt32)
	w.TagBuffer()
}

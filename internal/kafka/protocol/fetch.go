package protocol

import "github.com/google/uuid"

// FetchRequest asks for records from a set of partitions.
//
// Field presence by version:
//
//	replica_id            v0-14
//	max_bytes             v3+
//	isolation_level       v4+
//	session_id/epoch      v7+ (forgotten_topics as well)
//	topic name            v0-12, topic_id from v13
//	current_leader_epoch  v9+
//	rack_id               v11+
//	last_fetched_epoch    v12+
//	log_start_offset      v5+
//
// v12 and later use compact encodings with a tag buffer on every struct.
type FetchRequest struct {
	ReplicaID       int32
	MaxWaitMs       int32
	MinBytes        int32
	MaxBytes        int32
	IsolationLevel  int8
	SessionID       int32
	SessionEpoch    int32
	Topics          []FetchTopic
	ForgottenTopics []ForgottenTopic
	RackID          string
}

// FetchTopic names a topic by name (v0-12) or by id (v13+)
type FetchTopic struct {
	Name       string
	TopicID    uuid.UUID
	Partitions []PartitionFetchSpec
}

// PartitionFetchSpec is the per-partition fetch position
type PartitionFetchSpec struct {
	Partition          int32
	CurrentLeaderEpoch int32
	FetchOffset        int64
	LastFetchedEpoch   int32
	LogStartOffset     int64
	PartitionMaxBytes  int32
}

// ForgottenTopic lists partitions to drop from an incremental fetch session
type ForgottenTopic struct {
	Name       string
	TopicID    uuid.UUID
	Partitions []int32
}

func (*FetchRequest) APIKey() APIKey { return FetchKey }

func (req *FetchRequest) Decode(r *Reader, version int16) error {
	flexible := IsFlexible(FetchKey, version)
	conv := ConventionFor(flexible)
	var err error

	req.ReplicaID = -1
	if version <= 14 {
		if req.ReplicaID, err = r.Int32(); err != nil {
			return err
		}
	}
	if req.MaxWaitMs, err = r.Int32(); err != nil {
		return err
	}
	if req.MinBytes, err = r.Int32(); err != nil {
		return err
	}
	req.MaxBytes = 0x7fffffff
	if version >= 3 {
		if req.MaxBytes, err = r.Int32(); err != nil {
			return err
		}
	}
	if version >= 4 {
		if req.IsolationLevel, err = r.Int8(); err != nil {
			return err
		}
	}
	req.SessionEpoch = -1
	if version >= 7 {
		if req.SessionID, err = r.Int32(); err != nil {
			return err
		}
		if req.SessionEpoch, err = r.Int32(); err != nil {
			return err
		}
	}

	req.Topics, err = ReadArray(r, conv, func(r *Reader) (FetchTopic, error) {
		return decodeFetchTopic(r, version, conv, flexible)
	})
	if err != nil {
		return err
	}

	if version >= 7 {
		req.ForgottenTopics, err = ReadArray(r, conv, func(r *Reader) (ForgottenTopic, error) {
			return decodeForgottenTopic(r, version, conv, flexible)
		})
		if err != nil {
			return err
		}
	}
	if version >= 11 {
		if req.RackID, err = r.String(conv); err != nil {
			return err
		}
	}
	if flexible {
		return r.TagBuffer()
	}
	return nil
}

// readTopicRef reads a topic name before v13 and a topic id from v13
func readTopicRef(r *Reader, version int16, conv Convention) (name string, id uuid.UUID, err error) {
	if version >= 13 {
		id, err = r.UUID()
		return name, id, err
	}
	name, err = r.String(conv)
	return name, id, err
}

func decodeFetchTopic(r *Reader, version int16, conv Convention, flexible bool) (FetchTopic, error) {
	var t FetchTopic
	var err error
	if t.Name, t.TopicID, err = readTopicRef(r, version, conv); err != nil {
		return t, err
	}
	t.Partitions, err = ReadArray(r, conv, func(r *Reader) (PartitionFetchSpec, error) {
		return decodePartitionFetchSpec(r, version, flexible)
	})
	if err != nil {
		return t, err
	}
	if flexible {
		err = r.TagBuffer()
	}
	return t, err
}

func decodePartitionFetchSpec(r *Reader, version int16, flexible bool) (PartitionFetchSpec, error) {
	p := PartitionFetchSpec{CurrentLeaderEpoch: -1, LastFetchedEpoch: -1, LogStartOffset: -1}
	var err error
	if p.Partition, err = r.Int32(); err != nil {
		return p, err
	}
	if version >= 9 {
		if p.CurrentLeaderEpoch, err = r.Int32(); err != nil {
			return p, err
		}
	}
	if p.FetchOffset, err = r.Int64(); err != nil {
		return p, err
	}
	if version >= 12 {
		if p.LastFetchedEpoch, err = r.Int32(); err != nil {
			return p, err
		}
	}
	if version >= 5 {
		if p.LogStartOffset, err = r.Int64(); err != nil {
			return p, err
		}
	}
	if p.PartitionMaxBytes, err = r.Int32(); err != nil {
		return p, err
	}
	if flexible {
		err = r.TagBuffer()
	}
	return p, err
}

func decodeForgottenTopic(r *Reader, version int16, conv Convention, flexible bool) (ForgottenTopic, error) {
	var t ForgottenTopic
	var err error
	if t.Name, t.TopicID, err = readTopicRef(r, version, conv); err != nil {
		return t, err
	}
	if t.Partitions, err = ReadArray(r, conv, readInt32); err != nil {
		return t, err
	}
	if flexible {
		err = r.TagBuffer()
	}
	return t, err
}

// FetchResponse carries the fetched data per topic and partition
type FetchResponse struct {
	ThrottleTimeMs int32
	ErrorCode      int16
	SessionID      int32
	Responses      []FetchTopicResponse
}

// FetchTopicResponse groups partition results for one topic
type FetchTopicResponse struct {
	Name       string
	TopicID    uuid.UUID
	Partitions []PartitionFetchResult
}

// PartitionFetchResult is the outcome of fetching one partition
type PartitionFetchResult struct {
	PartitionIndex       int32
	ErrorCode            int16
	HighWatermark        int64
	LastStableOffset     int64
	LogStartOffset       int64
	AbortedTransactions  []AbortedTransaction
	PreferredReadReplica int32
	Records              []byte
}

// AbortedTransaction marks the first offset of an aborted transaction
type AbortedTransaction struct {
	ProducerID  int64
	FirstOffset int64
}

func (*FetchResponse) APIKey() APIKey { return FetchKey }

func (resp *FetchResponse) Encode(w *Writer, version int16) {
	flexible := IsFlexible(FetchKey, version)
	conv := ConventionFor(flexible)

	if version >= 1 {
		w.Int32(resp.ThrottleTimeMs)
	}
	if version >= 7 {
		w.Int16(resp.ErrorCode)
		w.Int32(resp.SessionID)
	}
	WriteArray(w, conv, resp.Responses, func(w *Writer, t FetchTopicResponse) {
		if version >= 13 {
			w.UUID(t.TopicID)
		} else {
			w.String(conv, t.Name)
		}
		WriteArray(w, conv, t.Partitions, func(w *Writer, p PartitionFetchResult) {
			p.encode(w, version, conv, flexible)
		})
		if flexible {
			w.TagBuffer()
		}
	})
	if flexible {
		w.TagBuffer()
	}
}

func (p PartitionFetchResult) encode(w *Writer, version int16, conv Convention, flexible bool) {
	w.Int32(p.PartitionIndex)
	w.Int16(p.ErrorCode)
	w.Int64(p.HighWatermark)
	if version >= 4 {
		w.Int64(p.LastStableOffset)
	}
	if version >= 5 {
		w.Int64(p.LogStartOffset)
	}
	if version >= 4 {
		WriteNullableArray(w, conv, p.AbortedTransactions, func(w *Writer, a AbortedTransaction) {
			w.Int64(a.ProducerID)
			w.Int64(a.FirstOffset)
			if flexible {
				w.TagBuffer()
			}
		})
	}
	if version >= 11 {
		w.Int32(p.PreferredReadReplica)
	}
	w.ByteString(conv, p.Records)
	if flexible {
		w.TagBuffer()
	}
}

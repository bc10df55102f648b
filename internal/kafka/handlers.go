// Package kafka provides the core Kafka server functionality
package kafka

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/moband/kaf/internal/kafka/protocol"
	"github.com/moband/kaf/pkg/logger"
)

const errorNone int16 = 0

// RequestHandler turns decoded requests into responses
type RequestHandler struct {
	logger   *logger.Logger
	metadata MetadataStore
	logs     LogReader
}

// HandlerOption customizes a RequestHandler
type HandlerOption func(*RequestHandler)

// WithMetadataStore sets the topic metadata source used by DescribeTopicPartitions
func WithMetadataStore(m MetadataStore) HandlerOption {
	return func(h *RequestHandler) { h.metadata = m }
}

// WithLogReader sets the partition data source used by Fetch
func WithLogReader(l LogReader) HandlerOption {
	return func(h *RequestHandler) { h.logs = l }
}

// NewRequestHandler creates a new request handler. Without options it knows
// no topics and serves empty partitions.
func NewRequestHandler(logger *logger.Logger, opts ...HandlerOption) *RequestHandler {
	h := &RequestHandler{
		logger:   logger,
		metadata: emptyMetadata{},
		logs:     emptyLog{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleRequest builds the response for a decoded request
func (h *RequestHandler) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	switch body := req.Body.(type) {
	case *protocol.ApiVersionsRequest:
		return h.handleApiVersionsRequest(req.Header, body), nil
	case *protocol.FetchRequest:
		return h.handleFetchRequest(ctx, req.Header, body), nil
	case *protocol.DescribeTopicPartitionsRequest:
		return h.handleDescribeTopicPartitionsRequest(ctx, req.Header, body), nil
	default:
		return nil, errors.Wrapf(protocol.ErrUnsupportedAPIKey, "no handler for api key %d", int16(req.Header.APIKey))
	}
}

// HandleUnsupportedRequest answers a request whose api key has no schema
// with a bare UNSUPPORTED_VERSION error code
func (h *RequestHandler) HandleUnsupportedRequest(header protocol.RequestHeader) *protocol.Response {
	h.logger.Warn("Unsupported api key %d (correlation %d)", int16(header.APIKey), header.CorrelationID)
	body := &protocol.ErrorResponse{Key: header.APIKey, ErrorCode: kerr.UnsupportedVersion.Code}
	return protocol.NewResponse(header, 0, body)
}

// versionCheck returns the error code for the request version and the
// version whose layout the response is encoded with
func versionCheck(header protocol.RequestHeader) (int16, int16) {
	d, _ := protocol.LookupAPI(header.APIKey)
	if d.Supports(header.APIVersion) {
		return errorNone, header.APIVersion
	}
	return kerr.UnsupportedVersion.Code, d.Clamp(header.APIVersion)
}

// handleApiVersionsRequest handles API_VERSIONS requests. An unsupported
// version is answered in the v0 layout, which every client can read.
func (h *RequestHandler) handleApiVersionsRequest(header protocol.RequestHeader, req *protocol.ApiVersionsRequest) *protocol.Response {
	errorCode, version := versionCheck(header)
	if errorCode != errorNone {
		version = 0
	}
	if req.ClientSoftwareName != "" {
		h.logger.Debug("ApiVersions from %s %s", req.ClientSoftwareName, req.ClientSoftwareVersion)
	}
	return protocol.NewResponse(header, version, protocol.NewApiVersionsResponse(errorCode))
}

// handleFetchRequest handles FETCH requests. Every requested partition is
// echoed; partition data comes from the LogReader.
func (h *RequestHandler) handleFetchRequest(ctx context.Context, header protocol.RequestHeader, req *protocol.FetchRequest) *protocol.Response {
	errorCode, version := versionCheck(header)

	resp := &protocol.FetchResponse{
		ErrorCode: errorCode,
		SessionID: req.SessionID,
		Responses: make([]protocol.FetchTopicResponse, 0, len(req.Topics)),
	}
	for _, topic := range req.Topics {
		tr := protocol.FetchTopicResponse{
			Name:       topic.Name,
			TopicID:    topic.TopicID,
			Partitions: make([]protocol.PartitionFetchResult, 0, len(topic.Partitions)),
		}
		for _, p := range topic.Partitions {
			result := protocol.PartitionFetchResult{
				PartitionIndex:       p.Partition,
				ErrorCode:            errorCode,
				AbortedTransactions:  []protocol.AbortedTransaction{},
				PreferredReadReplica: -1,
				Records:              []byte{},
			}
			if errorCode == errorNone {
				h.readPartition(ctx, version, topic, p, &result)
			}
			tr.Partitions = append(tr.Partitions, result)
		}
		resp.Responses = append(resp.Responses, tr)
	}

	return protocol.NewResponse(header, version, resp)
}

func (h *RequestHandler) readPartition(ctx context.Context, version int16, topic protocol.FetchTopic, p protocol.PartitionFetchSpec, result *protocol.PartitionFetchResult) {
	ref := TopicRef{Name: topic.Name, ID: topic.TopicID}
	read, err := h.logs.ReadPartition(ctx, ref, p.Partition, p.FetchOffset, p.PartitionMaxBytes)
	switch {
	case errors.Is(err, ErrUnknownTopic) && version >= 13:
		result.ErrorCode = kerr.UnknownTopicID.Code
	case errors.Is(err, ErrUnknownTopic):
		result.ErrorCode = kerr.UnknownTopicOrPartition.Code
	case err != nil:
		h.logger.Error("Reading partition %d of %s: %s", p.Partition, ref, err.Error())
		result.ErrorCode = kerr.UnknownServerError.Code
	default:
		result.HighWatermark = read.HighWatermark
		result.LastStableOffset = read.LastStableOffset
		result.LogStartOffset = read.LogStartOffset
		if read.Records != nil {
			result.Records = read.Records
		}
	}
}

// handleDescribeTopicPartitionsRequest handles DESCRIBE_TOPIC_PARTITIONS
// requests. The request cursor is returned unchanged as the next cursor.
func (h *RequestHandler) handleDescribeTopicPartitionsRequest(ctx context.Context, header protocol.RequestHeader, req *protocol.DescribeTopicPartitionsRequest) *protocol.Response {
	errorCode, version := versionCheck(header)

	resp := &protocol.DescribeTopicPartitionsResponse{
		Topics:     make([]protocol.TopicDescriptor, 0, len(req.Topics)),
		NextCursor: req.Cursor,
	}
	for _, name := range req.Topics {
		topic := protocol.TopicDescriptor{
			ErrorCode:            errorCode,
			Name:                 name,
			AuthorizedOperations: protocol.TopicAuthorizedOps,
		}
		if errorCode == errorNone {
			h.describeTopic(ctx, name, &topic)
		}
		resp.Topics = append(resp.Topics, topic)
	}

	return protocol.NewResponse(header, version, resp)
}

func (h *RequestHandler) describeTopic(ctx context.Context, name string, topic *protocol.TopicDescriptor) {
	md, err := h.metadata.DescribeTopic(ctx, name)
	if errors.Is(err, ErrUnknownTopic) {
		topic.ErrorCode = kerr.UnknownTopicOrPartition.Code
		return
	}
	if err != nil {
		h.logger.Error("Describing topic %s: %s", name, err.Error())
		topic.ErrorCode = kerr.UnknownServerError.Code
		return
	}

	topic.TopicID = md.TopicID
	topic.IsInternal = md.IsInternal
	for _, p := range md.Partitions {
		topic.Partitions = append(topic.Partitions, protocol.PartitionDescriptor{
			PartitionIndex: p.Index,
			LeaderID:       p.LeaderID,
			LeaderEpoch:    p.LeaderEpoch,
			ReplicaNodes:   p.Replicas,
			IsrNodes:       p.ISR,
		})
	}
}

// WriteResponse writes the framed response to w and returns the bytes written
func (h *RequestHandler) WriteResponse(w io.Writer, resp *protocol.Response) (int64, error) {
	n, err := resp.WriteTo(w)
	if err != nil {
		return n, errors.Wrapf(err, "writing %s response", resp.Body.APIKey())
	}
	return n, nil
}

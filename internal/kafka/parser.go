package kafka

import (
	"io"

	"github.com/moband/kaf/internal/kafka/protocol"
	"github.com/moband/kaf/pkg/logger"
)

// MessageParser reads and parses Kafka protocol messages from a connection
type MessageParser struct {
	logger        *logger.Logger
	maxFrameBytes int
}

// NewMessageParser creates a new message parser. Frames declaring more than
// maxFrameBytes are rejected; zero disables the limit.
func NewMessageParser(logger *logger.Logger, maxFrameBytes int) *MessageParser {
	return &MessageParser{
		logger:        logger,
		maxFrameBytes: maxFrameBytes,
	}
}

// MaxFrameBytes returns the configured frame size limit
func (p *MessageParser) MaxFrameBytes() int {
	return p.maxFrameBytes
}

// ReadRequest reads one frame from r and decodes it
func (p *MessageParser) ReadRequest(r io.Reader) (*protocol.Request, error) {
	payload, err := protocol.ReadFrame(r, p.maxFrameBytes)
	if err != nil {
		return nil, err
	}
	return p.Parse(payload)
}

// Parse decodes a frame payload. On an unknown api key the request is
// returned with its header alongside the error.
func (p *MessageParser) Parse(payload []byte) (*protocol.Request, error) {
	request, err := protocol.DecodeRequest(payload)
	if request != nil {
		p.logRequest(len(payload), request)
	}
	return request, err
}

// logRequest logs the details of a Kafka protocol request
func (p *MessageParser) logRequest(length int, request *protocol.Request) {
	clientID := ""
	if request.Header.ClientID != nil {
		clientID = *request.Header.ClientID
	}
	p.logger.Debug("Request details: Length=%d, ApiKey=%d (%s), ApiVersion=%d, CorrelationID=%d, ClientID=%q",
		length, request.Header.APIKey, request.Header.APIKey, request.Header.APIVersion,
		request.Header.CorrelationID, clientID)
}

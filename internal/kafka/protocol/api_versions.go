package protocol

// ApiVersionsRequest asks the broker which API versions it supports.
// v0-2 have no body. v3+ identify the client software.
type ApiVersionsRequest struct {
	ClientSoftwareName    string
	ClientSoftwareVersion string
}

func (*ApiVersionsRequest) APIKey() APIKey { return ApiVersionsKey }

// Decode reads the request body. Flexible versions tolerate an empty body,
// which some minimal clients send.
func (req *ApiVersionsRequest) Decode(r *Reader, version int16) error {
	if !IsFlexible(ApiVersionsKey, version) || r.Remaining() == 0 {
		return nil
	}
	var err error
	if req.ClientSoftwareName, err = r.String(Compact); err != nil {
		return err
	}
	if req.ClientSoftwareVersion, err = r.String(Compact); err != nil {
		return err
	}
	return r.TagBuffer()
}

// ApiVersionsResponse advertises the capability table
type ApiVersionsResponse struct {
	ErrorCode      int16
	APIKeys        []ApiKeyDescriptor
	ThrottleTimeMs int32
}

func (*ApiVersionsResponse) APIKey() APIKey { return ApiVersionsKey }

// NewApiVersionsResponse builds a response from the static capability table
func NewApiVersionsResponse(errorCode int16) *ApiVersionsResponse {
	return &ApiVersionsResponse{
		ErrorCode: errorCode,
		APIKeys:   SupportedAPIs(),
	}
}

func (resp *ApiVersionsResponse) Encode(w *Writer, version int16) {
	flexible := IsFlexible(ApiVersionsKey, version)
	conv := ConventionFor(flexible)

	w.Int16(resp.ErrorCode)
	WriteArray(w, conv, resp.APIKeys, func(w *Writer, d ApiKeyDescriptor) {
		w.Int16(int16(d.APIKey))
		w.Int16(d.MinVersion)
		w.Int16(d.MaxVersion)
		if flexible {
			w.TagBuffer()
		}
	})
	if version >= 1 {
		w.Int32(resp.ThrottleTimeMs)
	}
	if flexible {
		w.TagBuffer()
	}
}

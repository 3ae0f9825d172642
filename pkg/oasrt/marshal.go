package oasrt

import (
	"net/http"
)

// Marshaller writes handler results and failures to the response. Results
// are the values returned by service methods; nil means no content.
type Marshaller interface {
	Marshal(w http.ResponseWriter, r *http.Request, result any) error
	Error(w http.ResponseWriter, r *http.Request, err error)
}

// JSONMarshaller is a minimal Marshaller writing JSON. Status codes come
// from StatusCoder results; union values are unwrapped through Payloader.
// Byte payloads are written as-is.
type JSONMarshaller struct{}

func (JSONMarshaller) Marshal(w http.ResponseWriter, _ *http.Request, result any) error {
	status, coded := http.StatusOK, false
	if sc, ok := result.(StatusCoder); ok && sc.StatusCode() > 0 {
		status, coded = sc.StatusCode(), true
	}
	for {
		p, ok := result.(Payloader)
		if !ok {
			break
		}
		result = p.Payload()
	}

	switch v := result.(type) {
	case nil:
		if !coded {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
		return nil
	case []byte:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(status)
		_, err := w.Write(v)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(result)
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (JSONMarshaller) Error(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorStatus(err))
	_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error(), RequestID: RequestID(r.Context())})
}

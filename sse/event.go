package sse

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
)

// Event names emitted on the stream. The first frame of every stream is an
// endpoint event carrying the URL the client must POST its messages to; all
// application payloads are delivered as message events.
const (
	EventEndpoint = "endpoint"
	EventMessage  = "message"
)

// Event is one outbound frame destined for a session's SSE stream.
type Event struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// DecodeData decodes the event payload into out.
func (e *Event) DecodeData(out any) error {
	return mapstructure.Decode(e.Data, out)
}

func (e *Event) encode() (string, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func writeFrame(w io.Writer, name string, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)

	return err
}

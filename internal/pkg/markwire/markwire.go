// Package markwire holds the JSON shapes exchanged between the map screen and
// the mark service. Coordinates travel as JSON-encoded strings inside the
// envelope, so every mark is decoded twice on the way in.
package markwire

import (
	"encoding/json"
	"fmt"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// Endpoint paths relative to the service base address.
const (
	ListPath   = "/api/marks/"
	SubmitPath = "/api/mark/"
)

// Key is a mark identifier. The service sends strings but older deployments
// used numeric keys, so both are accepted.
type Key string

func (k *Key) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*k = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = Key(s)
	default:
		*k = Key(b)
	}
	return nil
}

// Mark is one element of the list envelope.
type Mark struct {
	Key        Key    `json:"key,omitempty"`
	Coordinate string `json:"coordinate"`
	Message    string `json:"message"`
}

// ListResponse is the body of GET /api/marks/.
type ListResponse struct {
	Message []Mark `json:"message"`
}

// SubmitRequest is the body of POST /api/mark/.
type SubmitRequest struct {
	Coordinate string `json:"coordinate"`
	Message    string `json:"message"`
}

// SubmitResponse is the body of a successful POST /api/mark/.
type SubmitResponse struct {
	Message Mark `json:"message"`
}

// EncodeCoordinate renders c as the string form used on the wire.
func EncodeCoordinate(c domain.Coordinate) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeCoordinate parses the string form back into a coordinate.
func DecodeCoordinate(s string) (domain.Coordinate, error) {
	var c domain.Coordinate
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return domain.Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	return c, nil
}

// FromDomain converts a stored mark into its wire form.
func FromDomain(m domain.Mark) (Mark, error) {
	coord, err := EncodeCoordinate(m.Coordinate)
	if err != nil {
		return Mark{}, err
	}
	return Mark{Key: Key(m.Key), Coordinate: coord, Message: m.Message}, nil
}

// ToDomain converts a wire mark into a domain mark.
func (m Mark) ToDomain() (domain.Mark, error) {
	coord, err := DecodeCoordinate(m.Coordinate)
	if err != nil {
		return domain.Mark{}, err
	}
	return domain.Mark{Key: string(m.Key), Coordinate: coord, Message: m.Message}, nil
}

// NewSubmitRequest builds the POST body for a new mark.
func NewSubmitRequest(c domain.Coordinate, message string) (SubmitRequest, error) {
	coord, err := EncodeCoordinate(c)
	if err != nil {
		return SubmitRequest{}, err
	}
	return SubmitRequest{Coordinate: coord, Message: message}, nil
}

// DecodeList parses a list envelope. Any bad element fails the whole list.
func DecodeList(body []byte) ([]domain.Mark, error) {
	var resp ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	marks := make([]domain.Mark, 0, len(resp.Message))
	for i, wm := range resp.Message {
		m, err := wm.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("mark %d: %w", i, err)
		}
		marks = append(marks, m)
	}
	return marks, nil
}

// EncodeList builds a list envelope from stored marks.
func EncodeList(marks []domain.Mark) (ListResponse, error) {
	resp := ListResponse{Message: make([]Mark, 0, len(marks))}
	for _, m := range marks {
		wm, err := FromDomain(m)
		if err != nil {
			return ListResponse{}, err
		}
		resp.Message = append(resp.Message, wm)
	}
	return resp, nil
}

// Package protocol implements the Lunaris wire protocol: length-prefixed
// JSON frames over a stream connection.
//
// Grounded on original_source/common/src/protocol.rs.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/aalyth/lunaris-go/internal/value"
)

// Request is a single SQL statement sent by a client.
type Request struct {
	SQL string `json:"sql"`
}

// ResultSet holds a query's projected columns and rows.
type ResultSet struct {
	Columns []string        `json:"columns"`
	Rows    [][]value.Value `json:"rows"`
}

// QueryResult is the payload of a successful Response.
type QueryResult struct {
	Message   string     `json:"message"`
	ResultSet *ResultSet `json:"result_set"`
}

// Response is either Ok(QueryResult) or Error{message}, mirroring the
// Rust original's externally-tagged enum encoding.
type Response struct {
	Ok    *QueryResult `json:"Ok,omitempty"`
	Error *ErrorBody   `json:"Error,omitempty"`
}

// ErrorBody carries a failed response's message.
type ErrorBody struct {
	Message string `json:"message"`
}

// OkResponse builds a successful Response.
func OkResponse(message string, rs *ResultSet) Response {
	return Response{Ok: &QueryResult{Message: message, ResultSet: rs}}
}

// ErrResponse builds a failed Response.
func ErrResponse(message string) Response {
	return Response{Error: &ErrorBody{Message: message}}
}

// SendMessage writes a u32-big-endian length prefix followed by the
// JSON-encoded message.
func SendMessage(w io.Writer, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// RecvMessage reads one length-prefixed JSON frame into dst. A clean EOF
// while reading the length prefix is reported as (false, nil) — the
// caller should treat that as "connection closed", not an error. Any
// other error (including a short read mid-frame) is returned as-is.
func RecvMessage(r io.Reader, dst any) (ok bool, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, err
	}
	return true, nil
}

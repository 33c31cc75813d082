package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxLineSize caps a single framed line, guarding the server against a
// client that never sends a newline.
const MaxLineSize = 1 << 20 // 1 MiB

// Framer reads and writes newline-delimited JSON objects over a connected
// byte stream. Grounded on the line-oriented proxying in the ACP-multiplex
// reference implementation, generalized from raw byte copying to framed
// request/reply objects.
type Framer struct {
	r *bufio.Reader
	w io.Writer
}

// NewFramer wraps rw for framed reads and writes.
func NewFramer(rw io.ReadWriter) *Framer {
	reader := bufio.NewReaderSize(rw, 4096)
	return &Framer{r: reader, w: rw}
}

// ReadRequest reads one line and decodes it as a SessionRequest. A line
// exceeding MaxLineSize or containing malformed JSON is reported as an
// error rather than panicking; callers should translate it into a
// BadRequest reply.
func (f *Framer) ReadRequest() (SessionRequest, error) {
	line, err := f.readLine()
	if err != nil {
		return SessionRequest{}, err
	}
	var req SessionRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return SessionRequest{}, fmt.Errorf("malformed request: %w", err)
	}
	return req, nil
}

// WriteResponse encodes resp and writes it as one newline-terminated line.
func (f *Framer) WriteResponse(resp SessionResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	data = append(data, '\n')
	_, err = f.w.Write(data)
	return err
}

// WriteRequest encodes req and writes it as one newline-terminated line.
// Used by clients (the CLI subcommands, and the session-info tool server)
// rather than the request dispatcher itself.
func (f *Framer) WriteRequest(req SessionRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	data = append(data, '\n')
	_, err = f.w.Write(data)
	return err
}

// ReadResponse reads one line and decodes it as a SessionResponse.
func (f *Framer) ReadResponse() (SessionResponse, error) {
	line, err := f.readLine()
	if err != nil {
		return SessionResponse{}, err
	}
	var resp SessionResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return SessionResponse{}, fmt.Errorf("malformed response: %w", err)
	}
	return resp, nil
}

func (f *Framer) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := f.r.ReadLine()
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
		if len(buf) > MaxLineSize {
			return nil, fmt.Errorf("request line exceeds %d bytes", MaxLineSize)
		}
		if !isPrefix {
			return buf, nil
		}
	}
}

package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Signature is the raw signature over a command. On the wire it is a JSON
// array of byte values; a base64 string is also accepted when decoding.
type Signature []byte

func (s Signature) MarshalJSON() ([]byte, error) {
	values := make([]uint16, len(s))
	for i, b := range s {
		values[i] = uint16(b)
	}
	return json.Marshal(values)
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("invalid base64 signature: %w", err)
		}
		*s = decoded
		return nil
	}

	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("invalid signature byte %d at index %d", v, i)
		}
		out[i] = byte(v)
	}
	*s = out
	return nil
}

// Signer produces a signature over a command string.
type Signer interface {
	Sign(command string) ([]byte, error)
}

// Verifier checks a command signature.
type Verifier interface {
	Verify(command string, signature []byte) bool
}

// SignedCommand is the envelope posted to /add-block. It carries no key
// identifier; the receiver verifies against the key it already trusts.
type SignedCommand struct {
	IP      string    `json:"ip"`
	Command string    `json:"command"`
	Sign    Signature `json:"sign"`
}

func NewSignedCommand(ip, command string) *SignedCommand {
	return &SignedCommand{
		IP:      ip,
		Command: command,
	}
}

func (c *SignedCommand) SignWith(signer Signer) error {
	signature, err := signer.Sign(c.Command)
	if err != nil {
		return err
	}
	c.Sign = signature
	return nil
}

func (c *SignedCommand) VerifyWith(verifier Verifier) bool {
	return verifier.Verify(c.Command, c.Sign)
}

func (c *SignedCommand) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return data, nil
}

func DecodeSignedCommand(data []byte) (*SignedCommand, error) {
	var cmd SignedCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("failed to decode command: %w", err)
	}
	return &cmd, nil
}

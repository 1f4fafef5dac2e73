package protocol

import (
	"encoding/json"
	"testing"

	"github.com/busybox42/beacon/pkg/crypto"
	"github.com/busybox42/beacon/pkg/crypto/cryptotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedCommandWireFormat(t *testing.T) {
	cmd := &SignedCommand{
		IP:      "172.20.10.3",
		Command: "START",
		Sign:    Signature{0, 1, 255},
	}

	data, err := cmd.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ip":"172.20.10.3","command":"START","sign":[0,1,255]}`, string(data))
}

func TestDecodeSignedCommand(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Signature
		wantErr bool
	}{
		{"byte array", `{"ip":"10.0.0.1","command":"START","sign":[7,8,9]}`, Signature{7, 8, 9}, false},
		{"base64", `{"ip":"10.0.0.1","command":"START","sign":"BwgJ"}`, Signature{7, 8, 9}, false},
		{"null", `{"ip":"10.0.0.1","command":"START","sign":null}`, nil, false},
		{"out of range", `{"ip":"10.0.0.1","command":"START","sign":[256]}`, nil, true},
		{"bad base64", `{"ip":"10.0.0.1","command":"START","sign":"@@"}`, nil, true},
		{"not json", `START`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeSignedCommand([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "START", cmd.Command)
			assert.Equal(t, "10.0.0.1", cmd.IP)
			assert.Equal(t, tt.want, cmd.Sign)
		})
	}
}

func TestSignedCommandSigningAndVerification(t *testing.T) {
	keys := cryptotest.WriteKeyPair(t, t.TempDir())
	auth := crypto.NewAuthenticator(keys.PrivateKey, keys.PublicKey)

	cmd := NewSignedCommand("192.168.1.5", "START")
	require.NoError(t, cmd.SignWith(auth))
	assert.NotEmpty(t, cmd.Sign)

	data, err := json.Marshal(cmd)
	require.NoError(t, err)

	received, err := DecodeSignedCommand(data)
	require.NoError(t, err)
	assert.True(t, received.VerifyWith(auth))

	// Tampering detection
	received.Command = "STOP"
	assert.False(t, received.VerifyWith(auth))
}

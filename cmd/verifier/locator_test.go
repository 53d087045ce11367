package verifier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testScriptHash = "da3cd38dbf67d44005e8f0dd677f3b048ebf9620cce81e1171f25e4287fd7e7f"
	testTxID       = "320ba9fb4c3f0a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718725"
)

func TestLocatorURL(t *testing.T) {
	cases := []struct {
		name     string
		locator  Locator
		expected string
	}{
		{
			name:     "script hash without version",
			locator:  Locator{Host: "localhost", Port: 8001, Network: "test", ScriptHash: testScriptHash},
			expected: "http://localhost:8001/test/" + testScriptHash,
		},
		{
			name:     "script hash with version",
			locator:  Locator{Host: "localhost", Port: 8001, Network: "test", ScriptHash: testScriptHash, Version: "0.1.7-beta.7"},
			expected: "http://localhost:8001/test/" + testScriptHash + "?ver=0.1.7-beta.7",
		},
		{
			name:     "outpoint",
			locator:  Locator{Host: "localhost", Port: 8001, Network: "test", TxID: testTxID, Vout: 0},
			expected: "http://localhost:8001/test/" + testTxID + "/0",
		},
		{
			name:     "outpoint with version",
			locator:  Locator{Host: "127.0.0.1", Port: 9000, Network: "main", TxID: testTxID, Vout: 3, Version: "1.3.4"},
			expected: "http://127.0.0.1:9000/main/" + testTxID + "/3?ver=1.3.4",
		},
		{
			name:     "txid takes precedence over script hash",
			locator:  Locator{Host: "localhost", Port: 8001, Network: "test", ScriptHash: testScriptHash, TxID: testTxID, Vout: 1},
			expected: "http://localhost:8001/test/" + testTxID + "/1",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expected, c.locator.URL())
		})
	}
}

func TestSubmissionJSON(t *testing.T) {
	raw, err := json.Marshal(Submission{Code: "contract", AbiConstructorParams: []string{"51", "52"}})
	require.NoError(t, err)
	require.JSONEq(t, `{"code":"contract","abiConstructorParams":["51","52"]}`, string(raw))

	raw, err = json.Marshal(Submission{Code: "contract"})
	require.NoError(t, err)
	require.JSONEq(t, `{"code":"contract"}`, string(raw))

	raw, err = json.Marshal(Submission{Code: "contract", AbiConstructorParams: []string{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"code":"contract","abiConstructorParams":[]}`, string(raw))

	var decoded Submission
	require.NoError(t, json.Unmarshal([]byte(`{"code":"c","abiConstructorParams":["00"]}`), &decoded))
	require.Equal(t, Submission{Code: "c", AbiConstructorParams: []string{"00"}}, decoded)
}

func TestValidateLocator(t *testing.T) {
	require.NoError(t, ValidateLocator(Locator{Network: "test", ScriptHash: testScriptHash}))
	require.NoError(t, ValidateLocator(Locator{Network: "main", TxID: testTxID, Vout: 7}))

	invalid := []Locator{
		{Network: "regtest", ScriptHash: testScriptHash},
		{Network: "test"},
		{Network: "test", ScriptHash: "abcd"},
		{Network: "test", ScriptHash: testScriptHash[:63] + "g"},
		{Network: "test", TxID: testTxID + "00"},
	}
	for _, l := range invalid {
		require.ErrorIs(t, ValidateLocator(l), ErrInvalidLocator, l.Path())
	}
}

func TestParseVout(t *testing.T) {
	vout, err := ParseVout("12")
	require.NoError(t, err)
	require.Equal(t, uint32(12), vout)

	for _, raw := range []string{"-1", "a", "", "4294967296"} {
		_, err := ParseVout(raw)
		require.ErrorIs(t, err, ErrInvalidLocator, raw)
	}
}

func TestValidateSubmission(t *testing.T) {
	require.NoError(t, ValidateSubmission(Submission{Code: "x"}))
	require.NoError(t, ValidateSubmission(Submission{Code: "x", AbiConstructorParams: []string{"51", "AbCd"}}))

	require.ErrorIs(t, ValidateSubmission(Submission{}), ErrInvalidSubmission)
	require.ErrorIs(t, ValidateSubmission(Submission{Code: "x", AbiConstructorParams: []string{"5"}}), ErrInvalidSubmission)
	require.ErrorIs(t, ValidateSubmission(Submission{Code: "x", AbiConstructorParams: []string{"zz"}}), ErrInvalidSubmission)
	require.ErrorIs(t, ValidateSubmission(Submission{Code: "x", AbiConstructorParams: []string{""}}), ErrInvalidSubmission)
}

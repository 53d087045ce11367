package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrInvalidLocator    = errors.New("invalid locator")
	ErrInvalidSubmission = errors.New("invalid submission")

	SupportedNetworks = map[string]bool{
		"main": true,
		"test": true,
	}
)

// Locator identifies the verification endpoint for a single script. The
// identifier is either a script hash or a transaction output (TxID, Vout). If
// TxID is set it takes precedence over ScriptHash.
type Locator struct {
	Host       string
	Port       int
	Network    string
	ScriptHash string
	TxID       string
	Vout       uint32
	Version    string
}

func (l Locator) IsOutpoint() bool {
	return l.TxID != ""
}

func (l Locator) Identifier() string {
	if l.IsOutpoint() {
		return fmt.Sprintf("%s/%d", l.TxID, l.Vout)
	}
	return l.ScriptHash
}

func (l Locator) Path() string {
	return fmt.Sprintf("/%s/%s", l.Network, l.Identifier())
}

// URL formats the request URL. The ver query parameter is appended exactly
// when a version is supplied.
func (l Locator) URL() string {
	u := fmt.Sprintf("http://%s:%d%s", l.Host, l.Port, l.Path())
	if l.Version != "" {
		u = fmt.Sprintf("%s?ver=%s", u, url.QueryEscape(l.Version))
	}
	return u
}

// Submission is the JSON body of a POST request.
type Submission struct {
	Code                 string   `json:"code"`
	AbiConstructorParams []string `json:"abiConstructorParams"`
}

// MarshalJSON emits abiConstructorParams only when the list is defined, so a
// nil list is left out while an empty one is sent as [].
func (s Submission) MarshalJSON() ([]byte, error) {
	type payload struct {
		Code                 string    `json:"code"`
		AbiConstructorParams *[]string `json:"abiConstructorParams,omitempty"`
	}
	p := payload{Code: s.Code}
	if s.AbiConstructorParams != nil {
		params := s.AbiConstructorParams
		p.AbiConstructorParams = &params
	}
	return json.Marshal(p)
}

func decodeHex(input string) ([]byte, error) {
	return hexutil.Decode("0x" + input)
}

func validateHash(name, input string) error {
	decoded, err := decodeHex(input)
	if err != nil {
		return fmt.Errorf("%w: %s %q is not hex: %v", ErrInvalidLocator, name, input, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: %s must be 32 bytes, got %d", ErrInvalidLocator, name, len(decoded))
	}
	return nil
}

// ValidateLocator checks the network and identifier of a locator as received
// by the server. Host, port and version are not checked.
func ValidateLocator(l Locator) error {
	if !SupportedNetworks[l.Network] {
		return fmt.Errorf("%w: unsupported network %q", ErrInvalidLocator, l.Network)
	}
	if l.IsOutpoint() {
		return validateHash("txid", l.TxID)
	}
	if l.ScriptHash == "" {
		return fmt.Errorf("%w: missing script hash", ErrInvalidLocator)
	}
	return validateHash("script hash", l.ScriptHash)
}

func ParseVout(raw string) (uint32, error) {
	vout, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: vout %q is not a non-negative integer", ErrInvalidLocator, raw)
	}
	return uint32(vout), nil
}

func ValidateSubmission(s Submission) error {
	if s.Code == "" {
		return fmt.Errorf("%w: code must not be empty", ErrInvalidSubmission)
	}
	for i, param := range s.AbiConstructorParams {
		if param == "" {
			return fmt.Errorf("%w: constructor param %d is empty", ErrInvalidSubmission, i)
		}
		if _, err := decodeHex(param); err != nil {
			return fmt.Errorf("%w: constructor param %d (%q) is not hex: %v", ErrInvalidSubmission, i, param, err)
		}
	}
	return nil
}

package verifier

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"
)

//go:embed contracts/*.ts
var contractSources embed.FS

var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario is a canned submission against a known script hash.
type Scenario struct {
	Name                 string
	Description          string
	ScriptHash           string
	Version              string
	AbiConstructorParams []string
	Delay                time.Duration
	SourceFile           string
}

var scenarios = []Scenario{
	{
		Name:        "demo",
		Description: "Hash lock: unlock with the sha256 preimage passed to the constructor",
		ScriptHash:  "897f4a5dcd4e21fa9016b7aa92139e7969d6fd5f7f335a526095d54b70a49b4b",
		Version:     "1.3.0",
		Delay:       time.Second,
		SourceFile:  "demo.ts",
	},
	{
		Name:        "demo-no-const-args",
		Description: "Demo contract with static x and y, no constructor arguments",
		ScriptHash:  "90e9df755a22a5c939eb71361d2626022e0babd44bd6684dfa156193ab6476a3",
		Version:     "0.1.7-beta.7",
		SourceFile:  "demo_no_const_args.ts",
	},
	{
		Name:        "erc721",
		Description: "ERC721-like non-fungible token with a hashed owner map",
		ScriptHash:  "45fe65c1dc2f84f75f6d21a40e53cb4e7766c0154678ed43db9e52a64fec944d",
		Version:     "0.1.7-beta.7",
		SourceFile:  "erc721.ts",
	},
	{
		Name:        "ordinal-lockup",
		Description: "Block height lockup redeemable by a public key hash",
		ScriptHash:  "da215cab185816503b189781b48e11dff1177d20dd82e00907ebd50b46fbe38d",
		Version:     "1.3.4",
		Delay:       time.Second,
		SourceFile:  "ordinal_lockup.ts",
	},
	{
		Name:        "p2pkh",
		Description: "Pay to public key hash",
		ScriptHash:  "a388885504161ba5ed2bd6f5e1e526f1fa01503b90fd4f9f9c7700657b991725",
		Version:     "0.1.7-beta.7",
		Delay:       time.Second,
		SourceFile:  "p2pkh.ts",
	},
	{
		Name:                 "project",
		Description:          "Sum/sub contract with ABI encoded constructor arguments, no version",
		ScriptHash:           "da3cd38dbf67d44005e8f0dd677f3b048ebf9620cce81e1171f25e4287fd7e7f",
		AbiConstructorParams: []string{"51", "52"},
		SourceFile:           "project.ts",
	},
}

// Scenarios returns the bundled scenarios sorted by name.
func Scenarios() []Scenario {
	result := make([]Scenario, len(scenarios))
	copy(result, scenarios)
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func LookupScenario(name string) (Scenario, error) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
}

func (s Scenario) Locator(host string, port int, network string) Locator {
	return Locator{
		Host:       host,
		Port:       port,
		Network:    network,
		ScriptHash: s.ScriptHash,
		Version:    s.Version,
	}
}

func (s Scenario) Submission() (Submission, error) {
	code, err := contractSource(s.SourceFile)
	if err != nil {
		return Submission{}, err
	}
	submission := Submission{Code: code}
	if s.AbiConstructorParams != nil {
		submission.AbiConstructorParams = append([]string{}, s.AbiConstructorParams...)
	}
	return submission, nil
}

func contractSource(name string) (string, error) {
	raw, err := contractSources.ReadFile(path.Join("contracts", name))
	if err != nil {
		return "", fmt.Errorf("could not read contract source %s: %v", name, err)
	}
	return string(raw), nil
}

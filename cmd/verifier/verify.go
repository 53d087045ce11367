package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// VerificationRequest is what a Verifier needs to decide whether the code
// compiles to the script behind the locator.
type VerificationRequest struct {
	Network              string   `json:"network"`
	ScriptHash           string   `json:"scriptHash,omitempty"`
	TxID                 string   `json:"txid,omitempty"`
	Vout                 uint32   `json:"vout"`
	ScryptTSVersion      string   `json:"scryptTSVersion"`
	Code                 string   `json:"code"`
	AbiConstructorParams []string `json:"abiConstructorParams"`
}

type VerificationResult struct {
	Match   bool
	Message string
}

type Verifier interface {
	Verify(ctx context.Context, request VerificationRequest) (VerificationResult, error)
}

func NewVerificationRequest(locator Locator, submission Submission) VerificationRequest {
	request := VerificationRequest{
		Network:              locator.Network,
		ScryptTSVersion:      locator.Version,
		Code:                 submission.Code,
		AbiConstructorParams: submission.AbiConstructorParams,
	}
	if locator.IsOutpoint() {
		request.TxID = locator.TxID
		request.Vout = locator.Vout
	} else {
		request.ScriptHash = locator.ScriptHash
	}
	if request.AbiConstructorParams == nil {
		request.AbiConstructorParams = []string{}
	}
	return request
}

// CommandVerifier hands the request to an external command on stdin. Exit
// status 0 means the code matches; any other exit status is a mismatch
// described by the command's output.
type CommandVerifier struct {
	Command []string
	Timeout time.Duration
}

func (v *CommandVerifier) Verify(ctx context.Context, request VerificationRequest) (VerificationResult, error) {
	if len(v.Command) == 0 {
		return VerificationResult{}, errors.New("no verifier command configured")
	}

	input, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		return VerificationResult{}, marshalErr
	}

	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, v.Command[0], v.Command[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return VerificationResult{}, fmt.Errorf("verifier did not finish: %w", ctxErr)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return VerificationResult{}, fmt.Errorf("could not run verifier: %w", runErr)
		}
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = strings.TrimSpace(stdout.String())
		}
		if message == "" {
			message = fmt.Sprintf("verifier exited with status %d", exitErr.ExitCode())
		}
		return VerificationResult{Match: false, Message: message}, nil
	}

	return VerificationResult{Match: true, Message: strings.TrimSpace(stdout.String())}, nil
}

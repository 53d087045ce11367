package verifier

import (
	"context"
	"fmt"
	"strconv"

	bugout "github.com/bugout-dev/bugout-go/pkg"
	spire "github.com/bugout-dev/bugout-go/pkg/spire"
)

type EntryReporter interface {
	Report(ctx context.Context, entry *Entry) error
}

// JournalReporter records accepted entries in a Bugout journal.
type JournalReporter struct {
	Client    *bugout.BugoutClient
	Token     string
	JournalID string
}

func InitJournalReporter(journalID string) (*JournalReporter, error) {
	if BUGOUT_ACCESS_TOKEN == "" {
		return nil, fmt.Errorf("set the BUGOUT_ACCESS_TOKEN environment variable to report entries to journal %s", journalID)
	}
	bugoutClient, bugoutErr := bugout.ClientFromEnv()
	if bugoutErr != nil {
		return nil, bugoutErr
	}
	return &JournalReporter{
		Client:    &bugoutClient,
		Token:     BUGOUT_ACCESS_TOKEN,
		JournalID: journalID,
	}, nil
}

func EntryTags(entry *Entry) []string {
	return []string{
		"type:entry",
		fmt.Sprintf("network:%s", entry.Network),
		fmt.Sprintf("version:%s", entry.ScryptTSVersion),
		fmt.Sprintf("verified:%t", entry.Verified),
		fmt.Sprintf("scrypt_verifier_version:%s", SCRYPT_VERIFIER_VERSION),
	}
}

func (r *JournalReporter) Report(ctx context.Context, entry *Entry) error {
	locator := entry.Locator()
	title := fmt.Sprintf("scrypt-verifier entry: %s", locator.Identifier())
	entryContext := spire.EntryContext{
		ContextType: "scrypt-verifier",
		ContextID:   strconv.FormatUint(uint64(entry.ID), 10),
		ContextURL:  locator.Path(),
	}
	content := fmt.Sprintf("Network: %s\nIdentifier: %s\nscrypt-ts version: %s\nVerified: %t\nSource files: %d",
		entry.Network, locator.Identifier(), entry.ScryptTSVersion, entry.Verified, len(entry.Src))
	_, err := r.Client.Spire.CreateEntry(r.Token, r.JournalID, title, content, EntryTags(entry), entryContext)
	return err
}

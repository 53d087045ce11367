package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrEntryExists   = errors.New("entry already exists")
)

const (
	seedScriptHash      = "0000000000000000000000000000000000000000000000000000000000000000"
	seedScryptTSVersion = "0.1.6-beta.7"
)

// Entry is a submitted contract source for a script hash or transaction
// output, checked against one scrypt-ts version.
type Entry struct {
	ID                   uint      `gorm:"primarykey" json:"id"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
	Network              string    `gorm:"column:network;size:8;uniqueIndex:idx_entry_locator" json:"network"`
	ScriptHash           string    `gorm:"column:script_hash;size:64;uniqueIndex:idx_entry_locator" json:"scriptHash,omitempty"`
	TxID                 string    `gorm:"column:tx_id;size:64;uniqueIndex:idx_entry_locator" json:"txid,omitempty"`
	Vout                 uint32    `gorm:"column:vout;uniqueIndex:idx_entry_locator" json:"vout"`
	ScryptTSVersion      string    `gorm:"column:scrypt_ts_version;size:64;uniqueIndex:idx_entry_locator" json:"scryptTSVersion"`
	AbiConstructorParams []string  `gorm:"column:abi_constructor_params;serializer:json;type:text" json:"abiConstructorParams"`
	Verified             bool      `gorm:"column:verified" json:"verified"`
	Src                  []SrcFile `gorm:"constraint:OnDelete:CASCADE" json:"src"`
}

// MarshalJSON leaves vout out of script hash entries.
func (e Entry) MarshalJSON() ([]byte, error) {
	type entryFields Entry
	payload := struct {
		entryFields
		Vout *uint32 `json:"vout,omitempty"`
	}{entryFields: entryFields(e)}
	if e.TxID != "" {
		vout := e.Vout
		payload.Vout = &vout
	}
	return json.Marshal(payload)
}

type SrcFile struct {
	ID      uint   `gorm:"primarykey" json:"-"`
	EntryID uint   `gorm:"column:entry_id;index" json:"-"`
	FName   string `gorm:"column:f_name;size:255" json:"fName"`
	Code    string `gorm:"column:code;type:text" json:"code"`
}

func NewEntry(locator Locator, submission Submission, verified bool) *Entry {
	entry := &Entry{
		Network:              locator.Network,
		ScryptTSVersion:      locator.Version,
		AbiConstructorParams: submission.AbiConstructorParams,
		Verified:             verified,
		Src: []SrcFile{
			{FName: "main.ts", Code: submission.Code},
		},
	}
	if locator.IsOutpoint() {
		entry.TxID = locator.TxID
		entry.Vout = locator.Vout
	} else {
		entry.ScriptHash = locator.ScriptHash
	}
	if entry.AbiConstructorParams == nil {
		entry.AbiConstructorParams = []string{}
	}
	return entry
}

func (e *Entry) Locator() Locator {
	return Locator{
		Network:    e.Network,
		ScriptHash: e.ScriptHash,
		TxID:       e.TxID,
		Vout:       e.Vout,
		Version:    e.ScryptTSVersion,
	}
}

type Store interface {
	// FindEntries returns all entries for the locator, newest first. The
	// locator version is ignored.
	FindEntries(ctx context.Context, locator Locator) ([]Entry, error)
	FindEntry(ctx context.Context, locator Locator, version string) (*Entry, error)
	SaveEntry(ctx context.Context, entry *Entry) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// OpenStore connects to the database described by cfg. The DSN must already
// be resolved.
func OpenStore(cfg DatabaseConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open %s database: %v", cfg.Driver, err)
	}
	return NewGormStore(db), nil
}

func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&Entry{}, &SrcFile{})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) locatorQuery(ctx context.Context, locator Locator) *gorm.DB {
	conditions := map[string]interface{}{
		"network":     locator.Network,
		"script_hash": "",
		"tx_id":       "",
		"vout":        0,
	}
	if locator.IsOutpoint() {
		conditions["tx_id"] = locator.TxID
		conditions["vout"] = locator.Vout
	} else {
		conditions["script_hash"] = locator.ScriptHash
	}
	return s.db.WithContext(ctx).Preload("Src").Where(conditions)
}

func (s *GormStore) FindEntries(ctx context.Context, locator Locator) ([]Entry, error) {
	var entries []Entry
	err := s.locatorQuery(ctx, locator).Order("created_at desc").Order("id desc").Find(&entries).Error
	return entries, err
}

func (s *GormStore) FindEntry(ctx context.Context, locator Locator, version string) (*Entry, error) {
	var entry Entry
	err := s.locatorQuery(ctx, locator).Where("scrypt_ts_version = ?", version).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveEntry inserts the entry together with its source files.
func (s *GormStore) SaveEntry(ctx context.Context, entry *Entry) error {
	err := s.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s %s", ErrEntryExists, entry.Locator().Path(), entry.ScryptTSVersion)
	}
	return err
}

// Seed inserts the demo entry for the all-zero script hash on the test
// network unless it is already present.
func Seed(ctx context.Context, store Store) (*Entry, error) {
	code, err := contractSource("seed_demo.ts")
	if err != nil {
		return nil, err
	}
	locator := Locator{
		Network:    "test",
		ScriptHash: seedScriptHash,
		Version:    seedScryptTSVersion,
	}

	existing, findErr := store.FindEntry(ctx, locator, seedScryptTSVersion)
	if findErr == nil {
		return existing, nil
	}
	if !errors.Is(findErr, ErrEntryNotFound) {
		return nil, findErr
	}

	entry := NewEntry(locator, Submission{Code: code}, true)
	entry.Src[0].FName = "demo.ts"
	if saveErr := store.SaveEntry(ctx, entry); saveErr != nil {
		return nil, saveErr
	}
	return entry, nil
}

package models

import (
	"time"

	"github.com/rs/xid"
	"gorm.io/datatypes"
)

// Run statuses and resolution outcomes as stored
const (
	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"
	StatusExternal   = "external"
)

// Run groups the resolutions recorded by one command invocation
type Run struct {
	ID         string `gorm:"primaryKey;type:varchar(20)"`
	Command    string `gorm:"type:varchar(20);not null"` // resolve, scan, rewrite
	Root       string `gorm:"type:text"`
	ConfigPath string `gorm:"type:text"`

	// Statistics
	FilesScanned  int    `gorm:"default:0"`
	Imports       int    `gorm:"default:0"`
	Aliased       int    `gorm:"default:0"`
	Unresolved    int    `gorm:"default:0"`
	TransactionID string `gorm:"type:varchar(64)"`

	StartedAt  time.Time `gorm:"autoCreateTime"`
	FinishedAt *time.Time

	// Relationships
	Resolutions []Resolution `gorm:"foreignKey:RunID"`
}

// Resolution is one aliased specifier and where it led
type Resolution struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	RunID string `gorm:"type:varchar(20);index;not null"`

	Issuer  string `gorm:"type:text"` // importing file or directory
	Request string `gorm:"type:varchar(512);index"`
	Alias   string `gorm:"type:varchar(255)"`
	Line    int

	Status string         `gorm:"type:varchar(20);index"`
	Path   string         `gorm:"type:text"` // empty unless resolved
	Error  string         `gorm:"type:text"`
	Trace  datatypes.JSON `gorm:"type:jsonb"` // stage descriptions, outermost first

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// NewRun creates a run with a fresh ID
func NewRun(command, root, configPath string) *Run {
	return &Run{
		ID:         xid.New().String(),
		Command:    command,
		Root:       root,
		ConfigPath: configPath,
	}
}

// TableName customizations for cleaner names
func (Run) TableName() string        { return "runs" }
func (Resolution) TableName() string { return "resolutions" }

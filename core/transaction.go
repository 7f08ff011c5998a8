package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Transaction states
const (
	TxPending    = "pending"
	TxCommitted  = "committed"
	TxRolledBack = "rolled_back"
)

// ErrNoTransaction is returned when an operation needs an open transaction.
var ErrNoTransaction = errors.New("no active transaction")

// TransactionOperation records one rewritten file
type TransactionOperation struct {
	FilePath   string    `json:"file_path"`
	BackupPath string    `json:"backup_path"`
	Checksum   string    `json:"checksum"` // of the original content
	Timestamp  time.Time `json:"timestamp"`
	Completed  bool      `json:"completed"`
	Error      string    `json:"error,omitempty"`
}

// TransactionLog is persisted as JSON so an interrupted rewrite can be
// inspected and undone.
type TransactionLog struct {
	ID          string                 `json:"id"`
	Started     time.Time              `json:"started"`
	Completed   time.Time              `json:"completed"`
	Operations  []TransactionOperation `json:"operations"`
	Status      string                 `json:"status"`
	Description string                 `json:"description"`
}

// TransactionManager handles transaction logging and rollback
type TransactionManager struct {
	logDir    string
	writer    *AtomicWriter
	mu        sync.Mutex
	currentTx *TransactionLog
}

// NewTransactionManager creates a manager keeping logs and backups in logDir
func NewTransactionManager(logDir string, writer *AtomicWriter) *TransactionManager {
	return &TransactionManager{
		logDir: logDir,
		writer: writer,
	}
}

// Begin starts a new transaction
func (tm *TransactionManager) Begin(description string) (*TransactionLog, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.currentTx != nil {
		return nil, fmt.Errorf("transaction already in progress: %s", tm.currentTx.ID)
	}
	if err := os.MkdirAll(tm.logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating transaction dir: %w", err)
	}

	tx := &TransactionLog{
		ID:          newTransactionID(),
		Started:     time.Now(),
		Operations:  []TransactionOperation{},
		Status:      TxPending,
		Description: description,
	}
	if err := tm.save(tx); err != nil {
		return nil, fmt.Errorf("writing transaction log: %w", err)
	}
	tm.currentTx = tx
	return tx, nil
}

// Track backs up filePath before it is rewritten
func (tm *TransactionManager) Track(filePath string) (*TransactionOperation, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.currentTx == nil {
		return nil, ErrNoTransaction
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}
	sum := sha256.Sum256(content)

	backup := filepath.Join(tm.logDir, tm.currentTx.ID, fmt.Sprintf("%d-%s", len(tm.currentTx.Operations), filepath.Base(filePath)))
	if err := os.MkdirAll(filepath.Dir(backup), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(backup, content, 0o644); err != nil {
		return nil, fmt.Errorf("backing up %s: %w", filePath, err)
	}

	tm.currentTx.Operations = append(tm.currentTx.Operations, TransactionOperation{
		FilePath:   filePath,
		BackupPath: backup,
		Checksum:   hex.EncodeToString(sum[:]),
		Timestamp:  time.Now(),
	})
	if err := tm.save(tm.currentTx); err != nil {
		return nil, fmt.Errorf("updating transaction log: %w", err)
	}

	op := tm.currentTx.Operations[len(tm.currentTx.Operations)-1]
	return &op, nil
}

// Complete marks the pending operation on filePath as done, failed when err
// is set.
func (tm *TransactionManager) Complete(filePath string, err error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.currentTx == nil {
		return ErrNoTransaction
	}

	for i := range tm.currentTx.Operations {
		op := &tm.currentTx.Operations[i]
		if op.FilePath != filePath || op.Completed {
			continue
		}
		op.Completed = true
		if err != nil {
			op.Error = err.Error()
		}
		return tm.save(tm.currentTx)
	}
	return fmt.Errorf("no pending operation for %s", filePath)
}

// Commit closes the transaction. Every operation must have succeeded.
func (tm *TransactionManager) Commit() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.currentTx == nil {
		return ErrNoTransaction
	}

	for _, op := range tm.currentTx.Operations {
		if !op.Completed || op.Error != "" {
			return fmt.Errorf("cannot commit: %s did not complete", op.FilePath)
		}
	}

	tm.currentTx.Status = TxCommitted
	tm.currentTx.Completed = time.Now()
	err := tm.save(tm.currentTx)
	tm.currentTx = nil
	return err
}

// Rollback restores every tracked file from its backup, newest first.
// Files whose write never started are restored too, since a failed rename
// may still have replaced them.
func (tm *TransactionManager) Rollback() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.currentTx == nil {
		return ErrNoTransaction
	}

	var failures []string
	for i := len(tm.currentTx.Operations) - 1; i >= 0; i-- {
		op := tm.currentTx.Operations[i]
		content, err := os.ReadFile(op.BackupPath)
		if err == nil {
			err = tm.writer.WriteFile(op.FilePath, content)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", op.FilePath, err))
		}
	}

	tm.currentTx.Status = TxRolledBack
	tm.currentTx.Completed = time.Now()
	if err := tm.save(tm.currentTx); err != nil {
		failures = append(failures, fmt.Sprintf("transaction log: %v", err))
	}
	tm.currentTx = nil

	if len(failures) > 0 {
		return fmt.Errorf("rollback completed with errors: %s", strings.Join(failures, "; "))
	}
	return nil
}

// Undo restores the files of a finished or interrupted transaction from its
// backups and marks it rolled back.
func (tm *TransactionManager) Undo(id string) (*TransactionLog, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.currentTx != nil && tm.currentTx.ID == id {
		return nil, fmt.Errorf("transaction %s is still in progress", id)
	}

	tx, err := tm.Load(id)
	if err != nil {
		return nil, err
	}
	if tx.Status == TxRolledBack {
		return nil, fmt.Errorf("transaction %s was already rolled back", id)
	}

	var failures []string
	for i := len(tx.Operations) - 1; i >= 0; i-- {
		op := tx.Operations[i]
		content, err := os.ReadFile(op.BackupPath)
		if err == nil {
			err = tm.writer.WriteFile(op.FilePath, content)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", op.FilePath, err))
		}
	}
	if len(failures) > 0 {
		return tx, fmt.Errorf("undo failed: %s", strings.Join(failures, "; "))
	}

	tx.Status = TxRolledBack
	tx.Completed = time.Now()
	return tx, tm.save(tx)
}

// Load reads a transaction log by id
func (tm *TransactionManager) Load(id string) (*TransactionLog, error) {
	data, err := os.ReadFile(filepath.Join(tm.logDir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("reading transaction log: %w", err)
	}

	var tx TransactionLog
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("parsing transaction log: %w", err)
	}
	return &tx, nil
}

// Pending lists transactions that never committed nor rolled back
func (tm *TransactionManager) Pending() ([]TransactionLog, error) {
	entries, err := os.ReadDir(tm.logDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pending []TransactionLog
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		tx, err := tm.Load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue // corrupted logs are skipped
		}
		if tx.Status == TxPending {
			pending = append(pending, *tx)
		}
	}
	return pending, nil
}

// Cleanup removes finished transactions older than olderThan
func (tm *TransactionManager) Cleanup(olderThan time.Duration) error {
	entries, err := os.ReadDir(tm.logDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-olderThan)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		tx, err := tm.Load(id)
		if err != nil || tx.Status == TxPending || !tx.Completed.Before(cutoff) {
			continue
		}
		os.Remove(filepath.Join(tm.logDir, e.Name()))
		os.RemoveAll(filepath.Join(tm.logDir, id))
	}
	return nil
}

func (tm *TransactionManager) save(tx *TransactionLog) error {
	data, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(tm.logDir, tx.ID+".json"), data, 0o644)
}

func newTransactionID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("tx_%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("tx_%d_%s", time.Now().UTC().UnixNano(), hex.EncodeToString(buf))
}

package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FileProcessor runs import inspection over source files and writes the
// resulting rewrites.
type FileProcessor struct {
	walker     *FileWalker
	extractors ExtractorRegistry
	workers    int
	writer     *AtomicWriter
	txManager  *TransactionManager
	log        *logrus.Entry
}

// NewFileProcessor creates a processor keeping transaction logs in txDir
func NewFileProcessor(extractors ExtractorRegistry, txDir string, log *logrus.Entry) *FileProcessor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	writer := NewAtomicWriter(DefaultAtomicConfig())
	return &FileProcessor{
		walker:     NewFileWalker(),
		extractors: extractors,
		workers:    8,
		writer:     writer,
		txManager:  NewTransactionManager(txDir, writer),
		log:        log,
	}
}

// Transactions exposes the manager used by Apply
func (fp *FileProcessor) Transactions() *TransactionManager {
	return fp.txManager
}

// Process inspects every import of every file in scope. Nothing is written.
func (fp *FileProcessor) Process(ctx context.Context, scope FileScope, inspector Inspector) (*Summary, error) {
	start := time.Now()

	results, err := fp.walker.Walk(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to walk files: %w", err)
	}

	reports := make(chan FileReport, fp.workers)
	var wg sync.WaitGroup
	for i := 0; i < fp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for wr := range results {
				if wr.Error != nil {
					reports <- FileReport{Path: wr.Path, Error: wr.Error.Error()}
					continue
				}
				reports <- fp.processFile(ctx, wr.Path, wr.Language, inspector)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(reports)
	}()

	var files []FileReport
	for r := range reports {
		files = append(files, r)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := Summarize(files)
	summary.ScanDuration = time.Since(start).Milliseconds()

	fp.log.WithFields(logrus.Fields{
		"root":       scope.Path,
		"files":      summary.FilesScanned,
		"aliased":    summary.Aliased,
		"unresolved": summary.Unresolved,
		"took":       time.Since(start).String(),
	}).Debug("scan finished")

	return summary, nil
}

// ProcessFile inspects a single file
func (fp *FileProcessor) ProcessFile(ctx context.Context, path string, inspector Inspector) FileReport {
	return fp.processFile(ctx, path, DetectLanguage(path), inspector)
}

func (fp *FileProcessor) processFile(ctx context.Context, path, language string, inspector Inspector) FileReport {
	report := FileReport{Path: path, Language: language}

	extractor, ok := fp.extractors.Get(language)
	if !ok {
		report.Error = fmt.Sprintf("no extractor for language: %s", language)
		return report
	}

	source, err := os.ReadFile(path)
	if err != nil {
		report.Error = fmt.Sprintf("failed to read file: %v", err)
		return report
	}

	imports, err := extractor.Imports(source)
	if err != nil {
		report.Error = fmt.Sprintf("failed to parse: %v", err)
		return report
	}

	var edits []Edit
	for _, imp := range imports {
		ir := inspector.Inspect(ctx, path, imp)
		report.Imports = append(report.Imports, ir)
		if ir.Replacement != "" && ir.Replacement != imp.Specifier {
			edits = append(edits, Edit{Start: imp.Start, End: imp.End, Text: ir.Replacement})
		}
	}

	if len(edits) == 0 {
		return report
	}

	modified, err := ApplyEdits(source, edits)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Original = string(source)
	report.Content = string(modified)
	report.Modified = true
	report.Diff = UnifiedDiff(fp.displayPath(path), report.Original, report.Content)
	return report
}

func (fp *FileProcessor) displayPath(path string) string {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, path); err == nil && !filepath.IsAbs(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

// Summarize totals file reports, sorted by path
func Summarize(files []FileReport) *Summary {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	s := &Summary{FilesScanned: len(files), Files: files}
	for _, f := range files {
		s.Imports += len(f.Imports)
		s.Aliased += f.Aliased()
		s.Unresolved += len(f.Unresolved())
		if f.Modified {
			s.FilesModified++
		}
	}
	return s
}

// Apply writes every modified file of summary inside one transaction. Any
// failure rolls all files back.
func (fp *FileProcessor) Apply(ctx context.Context, summary *Summary) error {
	var modified []FileReport
	for _, f := range summary.Files {
		if f.Modified && f.Error == "" {
			modified = append(modified, f)
		}
	}
	if len(modified) == 0 {
		return nil
	}

	tx, err := fp.txManager.Begin(fmt.Sprintf("rewrite %d files", len(modified)))
	if err != nil {
		return err
	}

	fail := func(cause error) error {
		if rbErr := fp.txManager.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", cause, rbErr)
		}
		return cause
	}

	for _, f := range modified {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		current, err := os.ReadFile(f.Path)
		if err != nil {
			return fail(err)
		}
		if string(current) != f.Original {
			return fail(fmt.Errorf("%s changed since it was scanned", f.Path))
		}

		if _, err := fp.txManager.Track(f.Path); err != nil {
			return fail(err)
		}
		werr := fp.writer.WriteFile(f.Path, []byte(f.Content))
		if err := fp.txManager.Complete(f.Path, werr); err != nil {
			return fail(err)
		}
		if werr != nil {
			return fail(fmt.Errorf("writing %s: %w", f.Path, werr))
		}
		fp.log.WithField("file", f.Path).Debug("rewrote imports")
	}

	if err := fp.txManager.Commit(); err != nil {
		return err
	}
	summary.TransactionID = tx.ID
	return nil
}

// Cleanup releases all locks
func (fp *FileProcessor) Cleanup() {
	fp.writer.Cleanup()
}

package spotcheck

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"docharvest/internal/batchstore"
	"docharvest/internal/logger"
	"docharvest/internal/models"
	"docharvest/pkg/hashutil"
)

func testLogger() *logger.Logger {
	return logger.NewLoggerWithOptions("error", "text", io.Discard)
}

type stubExtractor struct {
	pages map[string][]string
	fail  map[string]bool
}

func (s *stubExtractor) Pages(path string) ([]string, error) {
	name := filepath.Base(path)
	if s.fail[name] {
		return nil, errors.New("simulated extraction failure")
	}

	if pages, ok := s.pages[name]; ok {
		return pages, nil
	}

	return []string{"default page"}, nil
}

func writePDF(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	hash, err := hashutil.FileSHA256(path)
	if err != nil {
		t.Fatalf("Failed to hash file: %v", err)
	}

	return hash
}

func seedStore(t *testing.T, batchDir string, records []models.TextBatchRecord) {
	t.Helper()

	if _, err := batchstore.Write(batchDir, records); err != nil {
		t.Fatalf("Failed to seed batch store: %v", err)
	}
}

func TestRun_PassesWhenExtractionMatches(t *testing.T) {
	pdfDir := t.TempDir()
	batchDir := t.TempDir()

	hash := writePDF(t, pdfDir, "doc.pdf", "doc bytes")
	seedStore(t, batchDir, []models.TextBatchRecord{
		{SHA256: hash, Pages: []string{"page one", "page two"}},
	})

	ex := &stubExtractor{pages: map[string][]string{
		"doc.pdf": {"page one", "page two"},
	}}

	result, err := Run(pdfDir, batchDir, 5, ex, testLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Sampled != 1 || result.Passed != 1 || result.Failed != 0 {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestRun_ReportsDifferingPageIndices(t *testing.T) {
	pdfDir := t.TempDir()
	batchDir := t.TempDir()

	hash := writePDF(t, pdfDir, "doc.pdf", "doc bytes")
	seedStore(t, batchDir, []models.TextBatchRecord{
		{SHA256: hash, Pages: []string{"page one", "page two", "page three"}},
	})

	// Same page count, second page drifted.
	ex := &stubExtractor{pages: map[string][]string{
		"doc.pdf": {"page one", "page two CHANGED", "page three"},
	}}

	result, err := Run(pdfDir, batchDir, 5, ex, testLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Failed != 1 || len(result.Mismatches) != 1 {
		t.Fatalf("Expected one failure, got %+v", result)
	}

	m := result.Mismatches[0]
	if len(m.DiffPages) != 1 || m.DiffPages[0] != 2 {
		t.Errorf("Expected page 2 flagged, got %v", m.DiffPages)
	}
}

func TestRun_PageCountMismatchOmitsIndices(t *testing.T) {
	pdfDir := t.TempDir()
	batchDir := t.TempDir()

	hash := writePDF(t, pdfDir, "doc.pdf", "doc bytes")
	seedStore(t, batchDir, []models.TextBatchRecord{
		{SHA256: hash, Pages: []string{"page one", "page two"}},
	})

	ex := &stubExtractor{pages: map[string][]string{
		"doc.pdf": {"page one"},
	}}

	result, err := Run(pdfDir, batchDir, 5, ex, testLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Failed != 1 {
		t.Fatalf("Expected one failure, got %+v", result)
	}

	m := result.Mismatches[0]
	if m.WantPages != 2 || m.GotPages != 1 {
		t.Errorf("Unexpected counts: want %d got %d", m.WantPages, m.GotPages)
	}

	if len(m.DiffPages) != 0 {
		t.Errorf("DiffPages should be empty on count mismatch, got %v", m.DiffPages)
	}
}

func TestRun_ExtractionErrorCountsAsFailure(t *testing.T) {
	pdfDir := t.TempDir()
	batchDir := t.TempDir()

	hash := writePDF(t, pdfDir, "doc.pdf", "doc bytes")
	seedStore(t, batchDir, []models.TextBatchRecord{
		{SHA256: hash, Pages: []string{"page one"}},
	})

	ex := &stubExtractor{fail: map[string]bool{"doc.pdf": true}}

	result, err := Run(pdfDir, batchDir, 5, ex, testLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Failed != 1 || result.Mismatches[0].Err == nil {
		t.Errorf("Expected failure with error recorded, got %+v", result)
	}
}

func TestRun_OnlyFilesWithRecordsAreCandidates(t *testing.T) {
	pdfDir := t.TempDir()
	batchDir := t.TempDir()

	hash := writePDF(t, pdfDir, "known.pdf", "known bytes")
	seedStore(t, batchDir, []models.TextBatchRecord{
		{SHA256: hash, Pages: []string{"default page"}},
	})

	// On disk but never extracted.
	writePDF(t, pdfDir, "unknown.pdf", "unknown bytes")

	// Not a PDF at all.
	if err := os.WriteFile(filepath.Join(pdfDir, "notes.txt"), []byte("notes"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	result, err := Run(pdfDir, batchDir, 10, &stubExtractor{}, testLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Candidates != 1 || result.Sampled != 1 {
		t.Errorf("Expected only the known file sampled, got %+v", result)
	}
}

func TestRun_SampleSizeCappedByCandidates(t *testing.T) {
	pdfDir := t.TempDir()
	batchDir := t.TempDir()

	hashA := writePDF(t, pdfDir, "a.pdf", "a bytes")
	hashB := writePDF(t, pdfDir, "b.pdf", "b bytes")
	seedStore(t, batchDir, []models.TextBatchRecord{
		{SHA256: hashA, Pages: []string{"default page"}},
		{SHA256: hashB, Pages: []string{"default page"}},
	})

	result, err := Run(pdfDir, batchDir, 100, &stubExtractor{}, testLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Sampled != 2 || result.Passed != 2 {
		t.Errorf("Expected both candidates checked, got %+v", result)
	}
}

func TestRun_EmptyStoreIsCleanNoOp(t *testing.T) {
	pdfDir := t.TempDir()
	batchDir := t.TempDir()

	result, err := Run(pdfDir, batchDir, 5, &stubExtractor{}, testLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Records != 0 || result.Sampled != 0 {
		t.Errorf("Expected no-op, got %+v", result)
	}
}

func TestRun_MissingDirectoryIsFatal(t *testing.T) {
	batchDir := t.TempDir()

	_, err := Run(filepath.Join(t.TempDir(), "nope"), batchDir, 5, &stubExtractor{}, testLogger())
	if err == nil {
		t.Fatal("Expected error for missing pdf directory")
	}
}

func TestRun_FileTargetIsFatal(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "file.pdf")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := Run(file, t.TempDir(), 5, &stubExtractor{}, testLogger())
	if !errors.Is(err, ErrNotADirectory) {
		t.Fatalf("Expected ErrNotADirectory, got %v", err)
	}
}

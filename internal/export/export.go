// Package export writes the resolved field set for a run to a CSV file
// for post-hoc inspection. The artifact is best-effort: several fallback
// directories are probed before giving up.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jszwec/csvutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/internal/config"
	"github.com/entityops/einfiler/internal/extract"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// row is the CSV shape. The two summary blobs are carried as JSON columns
// so their dynamic keys survive without an unstable header.
type row struct {
	RecordID              string `csv:"record_id"`
	FirstName             string `csv:"first_name"`
	LastName              string `csv:"last_name"`
	PINNumber             string `csv:"pin_number"`
	Phone                 string `csv:"phone_number"`
	EntityType            string `csv:"entity_type"`
	QuarterOfFirstPayroll string `csv:"quarter_of_first_payroll"`
	FormationDate         string `csv:"formation_date"`
	BusinessCategory      string `csv:"business_category"`
	BusinessDescription   string `csv:"business_description"`
	LegalBusinessName     string `csv:"legal_business_name"`
	PhysicalStreet1       string `csv:"physical_street1"`
	PhysicalCity          string `csv:"physical_city"`
	PhysicalState         string `csv:"physical_state"`
	PhysicalZip           string `csv:"physical_zipcode"`
	MailingStreet1        string `csv:"mailing_street1"`
	MailingCity           string `csv:"mailing_city"`
	MailingState          string `csv:"mailing_state"`
	MailingZip            string `csv:"mailing_zipcode"`
	SummaryJSON           string `csv:"summary_json"`
	FlatJSON              string `csv:"flat_json"`
}

// Exporter writes one artifact per run and remembers where the last one
// landed so the debug endpoint can serve it back.
type Exporter struct {
	cfg    config.ExportConfig
	logger *zap.Logger

	mu       sync.Mutex
	lastPath string
}

// NewExporter builds an exporter; a disabled config makes Export a no-op.
func NewExporter(cfg config.ExportConfig, logger *zap.Logger) *Exporter {
	return &Exporter{cfg: cfg, logger: logger}
}

// candidates lists the paths to try in order: working directory, Desktop,
// Documents, the temp dir, then a bare relative filename.
func (e *Exporter) candidates() []string {
	name := e.cfg.Filename
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, name))
	}
	if home, err := homedir.Dir(); err == nil {
		paths = append(paths,
			filepath.Join(home, "Desktop", name),
			filepath.Join(home, "Documents", name))
	}
	paths = append(paths, filepath.Join(os.TempDir(), name), name)
	return paths
}

// writable probes the directory with a throwaway file.
func writable(dir string) bool {
	if dir == "" {
		dir = "."
	}
	probe := filepath.Join(dir, ".einfiler_write_probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o600); err != nil {
		return false
	}
	_ = os.Remove(probe)
	return true
}

func buildRow(f extract.Fields) (row, error) {
	summaryJSON, err := jsonAPI.MarshalToString(f.Summary)
	if err != nil {
		return row{}, fmt.Errorf("failed to encode summary column: %w", err)
	}
	flatJSON, err := jsonAPI.MarshalToString(f.Flat)
	if err != nil {
		return row{}, fmt.Errorf("failed to encode flattened column: %w", err)
	}

	return row{
		RecordID:              f.RecordID,
		FirstName:             f.FirstName,
		LastName:              f.LastName,
		PINNumber:             f.PIN,
		Phone:                 f.Phone,
		EntityType:            f.EntityType,
		QuarterOfFirstPayroll: f.QuarterOfFirstPayroll,
		FormationDate:         f.FormationDate,
		BusinessCategory:      f.BusinessCategory,
		BusinessDescription:   f.BusinessDescription,
		LegalBusinessName:     f.LegalName,
		PhysicalStreet1:       f.Physical.Street1,
		PhysicalCity:          f.Physical.City,
		PhysicalState:         f.Physical.State,
		PhysicalZip:           f.Physical.Zip,
		MailingStreet1:        f.Mailing.Street1,
		MailingCity:           f.Mailing.City,
		MailingState:          f.Mailing.State,
		MailingZip:            f.Mailing.Zip,
		SummaryJSON:           summaryJSON,
		FlatJSON:              flatJSON,
	}, nil
}

// Export writes the artifact, returning the path it landed at. All
// candidate locations failing is an error, but callers treat it as
// diagnostic only.
func (e *Exporter) Export(f extract.Fields) (string, error) {
	if !e.cfg.Enabled {
		return "", nil
	}

	r, err := buildRow(f)
	if err != nil {
		return "", err
	}
	data, err := csvutil.Marshal([]row{r})
	if err != nil {
		return "", fmt.Errorf("failed to encode csv artifact: %w", err)
	}

	var lastErr error
	for _, path := range e.candidates() {
		if !writable(filepath.Dir(path)) {
			e.logger.Debug("Export location not writable.", zap.String("path", path))
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			lastErr = err
			continue
		}
		e.mu.Lock()
		e.lastPath = path
		e.mu.Unlock()
		e.logger.Info("Debug artifact written.",
			zap.String("path", path), zap.String("record_id", f.RecordID))
		return path, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no writable export location")
	}
	return "", fmt.Errorf("failed to write debug artifact: %w", lastErr)
}

// LastPath returns where the most recent artifact was written, or empty
// when none has been.
func (e *Exporter) LastPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPath
}

package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const reportFile = "report.json"

// CreateRunDir makes a fresh run directory under baseDir/runs and points
// baseDir/latest at it.
func CreateRunDir(baseDir string) (string, error) {
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(baseDir, "runs", stamp+"-"+uuid.NewString()[:8])
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// SubmissionDir is where a submission's report lives inside a run.
func SubmissionDir(runDir, submission string) string {
	return filepath.Join(runDir, "submissions", filepath.Base(submission))
}

func WriteReport(dir string, rep *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, reportFile), data, 0o644)
}

func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &rep, nil
}

// Stored is a report found in a run directory.
type Stored struct {
	Submission string
	Report     *Report
}

// CollectReports walks a run directory for stored reports, in path order.
// Unreadable reports are skipped and returned as errs.
func CollectReports(runDir string) (found []Stored, errs []error, err error) {
	err = filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() != reportFile {
			return nil
		}
		rep, err := ReadReport(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		found = append(found, Stored{Submission: filepath.Base(filepath.Dir(path)), Report: rep})
		return nil
	})
	return found, errs, err
}

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashLogDir returns where crash files go: beside the configured log file,
// or the default logs directory
func CrashLogDir(config *Config) string {
	if config != nil && config.Logging.File != "" {
		return filepath.Dir(config.Logging.File)
	}
	return filepath.Dir(defaultLogFile())
}

// CrashReport renders a panic and its stack as a plain-text report
func CrashReport(panicVal interface{}, stackTrace string, now time.Time) []byte {
	var report bytes.Buffer

	report.WriteString("=== SONARGATE CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n", GetFullVersion())
	fmt.Fprintf(&report, "Args: %v\n\n", os.Args)

	report.WriteString("=== PANIC VALUE ===\n")
	fmt.Fprintf(&report, "%v\n\n", panicVal)

	report.WriteString("=== STACK TRACE ===\n")
	report.WriteString(stackTrace)
	report.WriteString("\n")

	report.WriteString("=== SYSTEM INFO ===\n")
	fmt.Fprintf(&report, "GOOS: %s\n", runtime.GOOS)
	fmt.Fprintf(&report, "GOARCH: %s\n", runtime.GOARCH)
	fmt.Fprintf(&report, "Go: %s\n", runtime.Version())

	report.WriteString("=== END CRASH REPORT ===\n")
	return report.Bytes()
}

// WriteCrashFile writes a crash report into dir and returns its path.
// The report is echoed to stderr when the file cannot be written.
func WriteCrashFile(dir string, panicVal interface{}, stackTrace string) (string, error) {
	now := time.Now()
	report := CrashReport(panicVal, stackTrace, now)
	crashPath := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))

	if err := os.MkdirAll(dir, 0755); err != nil {
		os.Stderr.Write(report)
		return "", fmt.Errorf("failed to create crash directory %s: %w", dir, err)
	}
	if err := os.WriteFile(crashPath, report, 0644); err != nil {
		os.Stderr.Write(report)
		return "", fmt.Errorf("failed to write crash file %s: %w", crashPath, err)
	}

	fmt.Fprintf(os.Stderr, "\n!!! SonarGate crashed - report saved to: %s !!!\n", crashPath)
	return crashPath, nil
}

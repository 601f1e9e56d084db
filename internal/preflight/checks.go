// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options selects what the checks verify.
type Options struct {
	Input   string
	Workers int

	// Output and Textfile are files the batch will write. Empty skips the
	// check.
	Output   string
	Textfile string
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

func (r *Result) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Passed {
		r.Passed = false
	}
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	result.add(checkInputDir(opts.Input))
	if opts.Output != "" {
		result.add(checkWritable("output_dir", opts.Output))
	}
	if opts.Textfile != "" {
		result.add(checkWritable("textfile_dir", opts.Textfile))
	}
	// Warning only
	result.add(checkFileDescriptors(opts.Workers))

	return result
}

// checkInputDir verifies the capture root exists and can be listed.
func checkInputDir(path string) Check {
	c := Check{Name: "input_dir"}

	info, err := os.Stat(path)
	if err != nil {
		c.Message = fmt.Sprintf("%s: %v", path, err)
		return c
	}
	if !info.IsDir() {
		c.Message = fmt.Sprintf("%s is not a directory", path)
		return c
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		c.Message = fmt.Sprintf("%s: %v", path, err)
		return c
	}

	c.Passed = true
	c.Message = fmt.Sprintf("%s (%d entries)", path, len(entries))
	return c
}

// checkWritable verifies a file can be created next to path.
func checkWritable(name, path string) Check {
	c := Check{Name: name}
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		c.Message = fmt.Sprintf("%s not writable: %v", dir, err)
		return c
	}
	f.Close()
	os.Remove(f.Name())

	c.Passed = true
	c.Message = fmt.Sprintf("%s writable", dir)
	return c
}

// checkFileDescriptors verifies sufficient file descriptors are available.
// A short limit only warns: workers hold one capture file open at a time.
func checkFileDescriptors(workers int) Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to check: " + err.Error(),
		}
	}

	// One capture per worker plus logging, metrics server and textfile.
	required := workers*4 + 64
	actual := int(limit.Cur)

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   true,
		Warning:  actual < required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d for %d workers)", actual, required, workers),
	}
}

// PrintResults writes the check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed || check.Warning {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "input_dir":
		return "pass --input with a readable capture directory"
	case "output_dir", "textfile_dir":
		return "create the directory or choose a writable path"
	case "file_descriptors":
		return "ulimit -n 4096 or lower --workers"
	default:
		return "see documentation"
	}
}

// Copyright 2026 Sonic Labs
// This file is part of Figaro Contract Coverage Infrastructure for Sonic
//
// Figaro is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Figaro is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Figaro. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	copyrightYear   = "2026"
	copyrightHolder = "Sonic Labs"

	// Embedded license header content
	defaultLicenseHeader = `Copyright 2026 Sonic Labs
This file is part of Figaro Contract Coverage Infrastructure for Sonic

Figaro is free software: you can redistribute it and/or modify
it under the terms of the GNU Lesser General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Figaro is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
GNU Lesser General Public License for more details.

You should have received a copy of the GNU Lesser General Public License
along with Figaro. If not, see <http://www.gnu.org/licenses/>.`
)

var (
	rootDir        = flag.String("root", "", "Root directory to process (required)")
	ignorePatterns = flag.String("ignore", "mock.go,_test.go", "Comma-separated list of patterns to ignore")
	licenseFile    = flag.String("license-file", "", "Path to license header file (uses embedded license if not specified)")
	dryRun         = flag.Bool("dry-run", false, "Check mode: only check if license headers are correct, don't modify files")
	verbose        = flag.Bool("verbose", false, "Verbose output: show all processed files")
)

// headerReport tallies the outcome of one header sweep.
type headerReport struct {
	correct int
	missing []string
	updated []string
	failed  []string
}

// commentHeader prefixes each license line with the comment marker of the
// target language. Blank license lines become bare markers.
func commentHeader(prefix string, license string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(license, "\n"), "\n") {
		if line == "" {
			b.WriteString(prefix + "\n")
		} else {
			b.WriteString(prefix + " " + line + "\n")
		}
	}
	return b.String()
}

// ignored reports whether a path below root matches one of the skip patterns.
// Anything under a hidden directory is skipped as well.
func ignored(path string, root string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(rel, pattern) {
			return true
		}
	}
	return false
}

// readLines returns the file content split into lines, with the trailing
// newline normalized away.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n"), nil
}

// hasHeader checks whether the file starts with the expected header followed
// by a blank line. On a mismatch it also returns the first offending line,
// counted from one.
func hasHeader(path string, header string) (bool, int, error) {
	lines, err := readLines(path)
	if err != nil {
		return false, 0, err
	}
	want := strings.Split(strings.TrimRight(header, "\n"), "\n")
	for i, w := range want {
		if i >= len(lines) || strings.TrimSpace(lines[i]) != strings.TrimSpace(w) {
			return false, i + 1, nil
		}
	}
	if len(want) < len(lines) && strings.TrimSpace(lines[len(want)]) != "" {
		return false, len(want) + 1, nil
	}
	return true, 0, nil
}

// headerEnd returns the index of the first line past the leading comment
// block, so an outdated header can be cut before the fresh one is written.
// Both line comments and a leading /* */ block are recognized.
func headerEnd(lines []string, prefix string) int {
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "/*" {
		for i := 1; i < len(lines); i++ {
			if strings.Contains(lines[i], "*/") {
				return i + 2
			}
		}
		return 0
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			return i
		}
	}
	return len(lines)
}

// rewriteHeader replaces the leading comment block of the file with the
// wanted header.
func rewriteHeader(path string, header string, prefix string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	if start := headerEnd(lines, prefix); start < len(lines) {
		for _, line := range lines[start:] {
			b.WriteString(line + "\n")
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// sweep walks root and checks or repairs the license header of every file
// with the given extension.
func sweep(root string, ext string, prefix string, header string, patterns []string, dryRun bool) (*headerReport, error) {
	rep := &headerReport{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ext) || ignored(path, root, patterns) {
			return nil
		}
		ok, line, err := hasHeader(path, header)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}
		switch {
		case ok:
			rep.correct++
			if *verbose {
				fmt.Printf("  [OK] %s\n", path)
			}
		case dryRun:
			rep.missing = append(rep.missing, path)
			fmt.Printf("  [MISSING] %s (line %d)\n", path, line)
		default:
			if err := rewriteHeader(path, header, prefix); err != nil {
				rep.failed = append(rep.failed, path)
				fmt.Printf("  [ERROR] %s: %v\n", path, err)
				return nil
			}
			rep.updated = append(rep.updated, path)
			fmt.Printf("  [UPDATED] %s\n", path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// updateAppCopyright refreshes the Copyright field of cli.App definitions
// under cmd. In check mode it only reports apps carrying a stale field.
func updateAppCopyright(root string, checkOnly bool) int {
	errs := 0
	want := fmt.Sprintf(`Copyright: "(c) %s %s"`, copyrightYear, copyrightHolder)
	pattern := regexp.MustCompile(`Copyright:\s*"[^"]*"`)

	err := filepath.WalkDir(filepath.Join(root, "cmd"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		content := string(data)
		if !strings.Contains(content, "cli.App{") {
			return nil
		}
		if checkOnly {
			if m := pattern.FindString(content); m != "" && m != want {
				fmt.Printf("  [MISSING] %s (stale cli.App copyright)\n", path)
				errs++
			}
			return nil
		}
		if updated := pattern.ReplaceAllString(content, want); updated != content {
			if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
				fmt.Printf("  [ERROR] %s: %v\n", path, err)
				errs++
				return nil
			}
			fmt.Printf("  [UPDATED] %s (cli.App copyright)\n", path)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("  [ERROR] failed to walk cmd directory: %v\n", err)
		errs++
	}
	return errs
}

func main() {
	flag.Parse()

	if *rootDir == "" {
		fmt.Fprintf(os.Stderr, "Error: --root parameter is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s --root <directory> [options]\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	root := filepath.Clean(*rootDir)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: root directory does not exist: %s\n", root)
		os.Exit(1)
	}

	patterns := strings.Split(*ignorePatterns, ",")
	for i := range patterns {
		patterns[i] = strings.TrimSpace(patterns[i])
	}

	license := defaultLicenseHeader
	if *licenseFile != "" {
		data, err := os.ReadFile(*licenseFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading license file: %v\n", err)
			os.Exit(1)
		}
		license = string(data)
	}

	fmt.Printf("License Header Tool\n")
	fmt.Printf("===================\n")
	fmt.Printf("Root directory: %s\n", root)
	fmt.Printf("Ignore patterns: %s\n", strings.Join(patterns, ", "))
	if *dryRun {
		fmt.Printf("Mode: DRY-RUN (checking only, no changes will be made)\n")
	} else {
		fmt.Printf("Mode: UPDATE (files will be modified)\n")
	}
	fmt.Printf("\n")

	fmt.Println("Processing .go files")
	fmt.Println("====================")
	rep, err := sweep(root, ".go", "//", commentHeader("//", license), patterns, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error processing .go files: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSummary for .go files:\n")
	fmt.Printf("  Correct: %d\n", rep.correct)
	if *dryRun {
		fmt.Printf("  Missing headers: %d\n", len(rep.missing))
	} else {
		fmt.Printf("  Updated: %d\n", len(rep.updated))
	}
	if len(rep.failed) > 0 {
		fmt.Printf("  Errors: %d\n", len(rep.failed))
	}

	fmt.Println("\nProcessing cli.App copyright updates")
	fmt.Println("=====================================")
	errs := len(rep.missing) + len(rep.failed)
	errs += updateAppCopyright(root, *dryRun)

	fmt.Printf("\n")
	if errs > 0 {
		if *dryRun {
			fmt.Printf("❌ Found %d file(s) with missing or stale license headers\n", errs)
			fmt.Printf("Run without --dry-run to fix them\n")
		} else {
			fmt.Printf("⚠️  Completed with %d error(s)\n", errs)
		}
		os.Exit(1)
	}
	if *dryRun {
		fmt.Printf("✅ All files have correct license headers\n")
	} else {
		fmt.Printf("✅ All files updated successfully\n")
	}
}

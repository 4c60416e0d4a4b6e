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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
)

// updateYearCommand bumps the copyright year across the workspace
var updateYearCommand = cli.Command{
	Action: updateYearAction,
	Name:   "year",
	Usage:  "Increments the year in the license header of all .go files in the workspace",
}

func updateYearAction(*cli.Context) error {
	return updateYear(".")
}

// bumpYears rewrites every match of re, advancing its captured year by one.
func bumpYears(re *regexp.Regexp, content string, format string) string {
	return re.ReplaceAllStringFunc(content, func(match string) string {
		year, _ := strconv.Atoi(re.FindStringSubmatch(match)[1])
		return fmt.Sprintf(format, year+1)
	})
}

// updateYear walks through files and updates copyright years, both in license
// headers and in cli.App Copyright fields. Generated mocks are left alone.
func updateYear(root string) error {
	reHeader := regexp.MustCompile(`// Copyright (\d{4}) Sonic Labs`)
	reApp := regexp.MustCompile(`Copyright:\s*"\(c\)\s*(\d{4})\s+Sonic Labs"`)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.Contains(path, "mock") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		content := string(data)

		updated := bumpYears(reHeader, content, "// Copyright %d Sonic Labs")
		updated = bumpYears(reApp, updated, `Copyright: "(c) %d Sonic Labs"`)

		if updated != content {
			return os.WriteFile(path, []byte(updated), 0644)
		}
		return nil
	})
}

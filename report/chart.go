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

package report

import (
	"errors"
	"fmt"
	"os"

	"github.com/0xsoniclabs/figaro/cover"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// convertFileData computes the covered-declaration percentage per file.
func convertFileData(rollup map[string][]*cover.DeclarationCoverage) []opts.BarData {
	items := []opts.BarData{}
	for _, file := range sortedFiles(rollup) {
		covered := 0
		for _, cov := range rollup[file] {
			if cov.Covered() {
				covered++
			}
		}
		items = append(items, opts.BarData{Value: 100 * float64(covered) / float64(len(rollup[file]))})
	}
	return items
}

// newCoverageChart creates a bar chart of per-file coverage percentages.
func newCoverageChart(rollup map[string][]*cover.DeclarationCoverage) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithInitializationOpts(opts.Initialization{
		Theme:     types.ThemeChalk,
		PageTitle: "Contract Coverage",
	}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: true,
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  true,
					Title: "Save",
				},
				DataZoom: &opts.ToolBoxFeatureDataZoom{
					Show: true,
				},
			},
		}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
		charts.WithTitleOpts(opts.Title{
			Title: "Contract Coverage",
		}))
	bar.SetXAxis(sortedFiles(rollup)).AddSeries("Covered Declarations [%]", convertFileData(rollup))
	bar.XYReversal()
	return bar
}

// WriteChart writes a rollup as an HTML bar chart. The percentage basis is
// the rollup's declaration lists, so pass one that includes zero-hit
// declarations.
func WriteChart(filename string, rollup map[string][]*cover.DeclarationCoverage) (err error) {
	f, fErr := os.Create(filename)
	if fErr != nil {
		return fmt.Errorf("cannot open for writing chart file; %v", fErr)
	}
	defer func(f *os.File) {
		err = errors.Join(err, f.Close())
	}(f)
	return newCoverageChart(rollup).Render(f)
}

package charts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

type Renderer struct {
	outputDir string
}

func NewRenderer(outputDir string) *Renderer {
	return &Renderer{outputDir: outputDir}
}

// Render writes an HTML chart for the rows and returns its path. An empty
// path with nil error means the kind/shape combination is not renderable.
func (r *Renderer) Render(rows []map[string]interface{}, kind ChartKind, title, artifactId string) (string, error) {
	if kind == KindNone || len(rows) == 0 {
		return "", nil
	}

	labelKey, valueKey := pickAxes(rows)
	if labelKey == "" || valueKey == "" {
		return "", nil
	}

	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		label, _ := row[labelKey].(string)
		value, ok := numericValue(row[valueKey])
		if label == "" || !ok {
			continue
		}
		labels = append(labels, label)
		values = append(values, value)
	}
	if len(labels) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(r.outputDir, fmt.Sprintf("%s.html", artifactId))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	switch kind {
	case KindLine:
		line := charts.NewLine()
		line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))
		data := make([]opts.LineData, len(values))
		for i, v := range values {
			data[i] = opts.LineData{Value: v}
		}
		line.SetXAxis(labels).AddSeries(valueKey, data)
		if err := line.Render(f); err != nil {
			return "", fmt.Errorf("render line chart: %w", err)
		}
	case KindPie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))
		data := make([]opts.PieData, len(values))
		for i, v := range values {
			data[i] = opts.PieData{Name: labels[i], Value: v}
		}
		pie.AddSeries(valueKey, data)
		if err := pie.Render(f); err != nil {
			return "", fmt.Errorf("render pie chart: %w", err)
		}
	default:
		bar := charts.NewBar()
		bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))
		data := make([]opts.BarData, len(values))
		for i, v := range values {
			data[i] = opts.BarData{Value: v}
		}
		bar.SetXAxis(labels).AddSeries(valueKey, data)
		if err := bar.Render(f); err != nil {
			return "", fmt.Errorf("render bar chart: %w", err)
		}
	}

	return path, nil
}

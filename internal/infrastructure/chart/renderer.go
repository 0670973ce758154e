package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
)

// ErrNoData is returned when the series has nothing to draw.
var ErrNoData = errors.New("chart: no data")

const (
	DefaultWidth  = 1000
	DefaultHeight = 500

	pieTitle = "Top Contributors"
	barTitle = "Busiest Hours (UTC)"
)

var (
	pieColors = []drawing.Color{
		drawing.ColorFromHex("4dd2ff"),
		drawing.ColorFromHex("99e699"),
		drawing.ColorFromHex("ac71db"),
		drawing.ColorFromHex("ffdb4d"),
		drawing.ColorFromHex("ff944d"),
	}
	barColor = drawing.ColorFromHex("f0a041")
)

// Renderer 仪表盘图片渲染: 左侧贡献者饼图, 右侧 24 小时柱状图
type Renderer struct {
	width  int
	height int
}

// NewRenderer 创建渲染器, 非正尺寸使用默认值
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Renderer{width: width, height: height}
}

// Render returns the dashboard as PNG bytes.
func (r *Renderer) Render(series valueobject.ChartSeries) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, series); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderTo writes the dashboard PNG to w.
func (r *Renderer) RenderTo(w io.Writer, series valueobject.ChartSeries) error {
	if series.IsEmpty() {
		return ErrNoData
	}

	half := r.width / 2

	pie, err := r.renderPie(series, half)
	if err != nil {
		return fmt.Errorf("render pie: %w", err)
	}
	bar, err := r.renderBar(series, r.width-half)
	if err != nil {
		return fmt.Errorf("render bar: %w", err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, half, r.height), pie, pie.Bounds().Min, draw.Over)
	draw.Draw(canvas, image.Rect(half, 0, r.width, r.height), bar, bar.Bounds().Min, draw.Over)

	return png.Encode(w, canvas)
}

func (r *Renderer) renderPie(series valueobject.ChartSeries, width int) (image.Image, error) {
	values := make([]gochart.Value, 0, len(series.Values))
	for i, v := range series.Values {
		if v <= 0 {
			continue
		}
		share := 0.0
		if i < len(series.Shares) {
			share = series.Shares[i]
		}
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s %.1f%%", series.Labels[i], share*100),
			Value: float64(v),
			Style: gochart.Style{
				FillColor:   pieColors[i%len(pieColors)],
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
				FontSize:    10,
			},
		})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	pie := gochart.PieChart{
		Title:  pieTitle,
		Width:  width,
		Height: r.height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		Values: values,
	}
	return decodeChart(pie.Render)
}

func (r *Renderer) renderBar(series valueobject.ChartSeries, width int) (image.Image, error) {
	var peak int64
	bars := make([]gochart.Value, entity.HoursPerDay)
	for h := 0; h < entity.HoursPerDay; h++ {
		var v int64
		if h < len(series.HourlyValues) {
			v = series.HourlyValues[h]
		}
		if v > peak {
			peak = v
		}
		bars[h] = gochart.Value{
			Label: fmt.Sprintf("%02d", h),
			Value: float64(v),
			Style: gochart.Style{FillColor: barColor, StrokeColor: barColor},
		}
	}

	// 每小时一个槽位, 柱宽占 3/4
	slot := (width - 120) / entity.HoursPerDay
	if slot < 4 {
		slot = 4
	}
	barWidth := slot * 3 / 4

	bar := gochart.BarChart{
		Title:  barTitle,
		Width:  width,
		Height: r.height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth:   barWidth,
		BarSpacing: slot - barWidth,
		XAxis:      gochart.Style{FontSize: 7},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: float64(peak) + 1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%d", int64(f))
				}
				return ""
			},
		},
		Bars: bars,
	}
	return decodeChart(bar.Render)
}

func decodeChart(render func(gochart.RendererProvider, io.Writer) error) (image.Image, error) {
	var buf bytes.Buffer
	if err := render(gochart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

package service

import (
	"fmt"
	"image/color"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	plotPosterior      = "posterior.png"
	plotResponseCurves = "response_curves.png"
	plotMediaEffect    = "media_effect.png"
	plotROI            = "roi.png"
)

var channelColors = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

// RenderPlots 在产物目录下渲染四张固定图，返回文件名列表
func RenderPlots(dir string, fit *FitResult) ([]string, error) {
	steps := []struct {
		file string
		fn   func(path string, fit *FitResult) error
	}{
		{plotPosterior, renderPosterior},
		{plotResponseCurves, renderResponseCurves},
		{plotMediaEffect, renderMediaEffect},
		{plotROI, renderROI},
	}

	names := make([]string, 0, len(steps))
	for _, step := range steps {
		if err := step.fn(filepath.Join(dir, step.file), fit); err != nil {
			return nil, fmt.Errorf("render %s failed: %w", step.file, err)
		}
		names = append(names, step.file)
	}
	return names, nil
}

// renderPosterior 每个媒体通道贡献的后验直方图
func renderPosterior(path string, fit *FitResult) error {
	p := plot.New()
	p.Title.Text = "Posterior media contribution"
	p.X.Label.Text = "contribution"
	p.Y.Label.Text = "density"

	for i, draws := range fit.MediaDraws {
		hist, err := plotter.NewHist(plotter.Values(draws), 30)
		if err != nil {
			return err
		}
		hist.Normalize(1)
		c := channelColors[i%len(channelColors)]
		hist.FillColor = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0x60}
		hist.LineStyle.Color = c
		p.Add(hist)
		p.Legend.Add(fit.MediaCols[i], hist)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// renderResponseCurves 各通道变换后投放与边际响应的关系
func renderResponseCurves(path string, fit *FitResult) error {
	p := plot.New()
	p.Title.Text = "Response curves"
	p.X.Label.Text = "normalized spend"
	p.Y.Label.Text = "response"

	for i, media := range fit.TransformedMedia {
		beta := fit.CoefMean[1+i]

		xs := append([]float64(nil), media...)
		sort.Float64s(xs)
		pts := make(plotter.XYs, len(xs))
		for j, x := range xs {
			pts[j].X = x
			pts[j].Y = beta * x
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = channelColors[i%len(channelColors)]
		p.Add(line)
		p.Legend.Add(fit.MediaCols[i], line)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// renderMediaEffect 每通道效应点估计柱状图
func renderMediaEffect(path string, fit *FitResult) error {
	return renderBars(path, "Media effect", fit.MediaCols, fit.MediaEffectHat)
}

// renderROI 每通道 ROI 点估计柱状图
func renderROI(path string, fit *FitResult) error {
	return renderBars(path, "ROI", fit.MediaCols, fit.RoiHat)
}

func renderBars(path, title string, names []string, values []float64) error {
	p := plot.New()
	p.Title.Text = title

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = channelColors[0]
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

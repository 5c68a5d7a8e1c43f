// Package export rasterises the results panel into a downloadable PNG.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/dashboard"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const (
	defaultScale   = 2
	maxRemoteBytes = 32 << 20
)

// ContentType of exported files.
const ContentType = "image/png"

// Figure is one image block of the panel.
type Figure struct {
	Caption string
	Payload string // data URI, http(s) URL, or "" when absent
}

// Panel is everything visible in the results region.
type Panel struct {
	Heading string
	Metrics []dashboard.MetricCard
	Figures []Figure
}

// metricLabels are the ASCII captions used in the raster; the bitmap font
// has no CJK glyphs.
var metricLabels = map[string]string{
	core.MetricAnnualReturn:     "Annualized Return",
	core.MetricCumulativeReturn: "Cumulative Return",
	core.MetricMaxDrawdown:      "Max Drawdown",
	core.MetricSharpe:           "Sharpe Ratio",
	core.MetricWinRate:          "Win Rate",
	core.MetricProfitLoss:       "Profit/Loss Ratio",
}

// NewPanel builds the export panel from a result and the uploaded image.
// It returns core.ErrExportTarget when there is no result to export.
func NewPanel(req core.BacktestRequest, result *core.BacktestResult, uploaded string) (Panel, error) {
	if result == nil {
		return Panel{}, core.ErrExportTarget
	}
	p := Panel{
		Heading: fmt.Sprintf("Backtest  strategy #%d  code %s  %s - %s",
			req.StrategyID, req.StockCode, req.StartDate, req.EndDate),
		Metrics: dashboard.FormatMetrics(result.Metrics),
		Figures: []Figure{
			{Caption: "Equity Curve vs Benchmark", Payload: result.Chart(core.ChartEquityCurve)},
			{Caption: "Monthly Return Heatmap", Payload: result.Chart(core.ChartHeatmap)},
		},
	}
	if uploaded != "" {
		p.Figures = append(p.Figures, Figure{Caption: "Reference Image", Payload: uploaded})
	}
	return p, nil
}

// FileName returns <prefix>_<YYYY-MM-DD>.png for the given time.
func FileName(prefix string, now time.Time) string {
	return prefix + "_" + now.Format("2006-01-02") + ".png"
}

// Exporter renders panels to PNG.
type Exporter struct {
	scale       int
	allowRemote bool
	http        *http.Client
	logger      *zap.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithScale sets the pixel density multiplier.
func WithScale(scale int) Option {
	return func(e *Exporter) {
		if scale >= 1 {
			e.scale = scale
		}
	}
}

// WithRemoteImages allows http(s) figure payloads to be fetched with hc.
func WithRemoteImages(hc *http.Client) Option {
	return func(e *Exporter) {
		e.allowRemote = hc != nil
		e.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{scale: defaultScale, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render rasterises p and returns PNG bytes. Any failure is reported as
// core.ErrExportFailed with the detail as cause.
func (e *Exporter) Render(ctx context.Context, p Panel) ([]byte, error) {
	images, err := e.loadFigures(ctx, p.Figures)
	if err != nil {
		return nil, core.WrapError(core.ErrExportFailed, err)
	}

	canvas := layout(p, images)

	out := canvas
	if e.scale > 1 {
		b := canvas.Bounds()
		scaled := image.NewRGBA(image.Rect(0, 0, b.Dx()*e.scale, b.Dy()*e.scale))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), canvas, b, xdraw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, out); err != nil {
		return nil, core.WrapError(core.ErrExportFailed, fmt.Errorf("encoding png: %w", err))
	}

	e.logger.Debug("panel exported",
		zap.Int("width", out.Bounds().Dx()),
		zap.Int("height", out.Bounds().Dy()),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

// loadFigures decodes all figure payloads concurrently. Absent payloads
// yield nil images.
func (e *Exporter) loadFigures(ctx context.Context, figures []Figure) ([]image.Image, error) {
	images := make([]image.Image, len(figures))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range figures {
		if f.Payload == "" {
			continue
		}
		g.Go(func() error {
			img, err := e.loadImage(ctx, f.Payload)
			if err != nil {
				return fmt.Errorf("loading %q: %w", f.Caption, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func (e *Exporter) loadImage(ctx context.Context, payload string) (image.Image, error) {
	lower := strings.ToLower(payload)
	switch {
	case strings.HasPrefix(lower, "data:"):
		data, err := decodeDataURI(payload)
		if err != nil {
			return nil, err
		}
		return decodeImage(data)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		if !e.allowRemote {
			return nil, fmt.Errorf("remote images disabled")
		}
		return e.fetchImage(ctx, payload)
	default:
		return nil, fmt.Errorf("unsupported image reference")
	}
}

func (e *Exporter) fetchImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("image server returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return decodeImage(data)
}

// decodeImage checks the header dimensions before allocating pixels.
func decodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if !core.ImageWithinLimits(cfg.Width, cfg.Height) {
		return nil, fmt.Errorf("image is %dx%d pixels", cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// decodeDataURI returns the bytes of a base64 data URI.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
		return nil, fmt.Errorf("data uri is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	return data, nil
}

package adgen

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/k1LoW/errors"
	"golang.org/x/image/font/basicfont"

	"github.com/ballzy/adgen/config"
)

const jpegQuality = 95

// SlotError is one slot's download/decode/composite failure. Slot failures
// never fail the record: the slot keeps whatever the template shows
// underneath and rendering continues.
type SlotError struct {
	Slot int
	URL  string
	Err  error
}

func (e SlotError) Error() string {
	return fmt.Sprintf("slot %d (%s): %v", e.Slot, e.URL, e.Err)
}

func (e SlotError) Unwrap() error {
	return e.Err
}

// Compositor renders one creative per product from the fixed layout. It is
// read-only after construction and reused for every render within a run.
type Compositor struct {
	layout     config.Layout
	outputDir  string
	httpClient *http.Client
	logger     *slog.Logger
}

func newCompositor(cfg *config.Config, client *http.Client, logger *slog.Logger) *Compositor {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.ImageTimeoutSec) * time.Second}
	}
	return &Compositor{
		layout:     cfg.Layout,
		outputDir:  cfg.OutputDir,
		httpClient: client,
		logger:     logger,
	}
}

// Render composites the product's photos and price onto the template and
// writes ad_<id>.jpg under the market's output directory. The returned slot
// errors are degradations, not failures; err is non-nil only when the
// creative itself could not be produced.
func (c *Compositor) Render(ctx context.Context, market config.Market, p *Product) (_ string, slotErrs []SlotError, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	base := c.loadTemplate()

	for i, slot := range c.layout.Slots {
		if i >= len(p.ImageURLs) {
			break
		}
		img, ferr := c.fetchImage(ctx, p.ImageURLs[i])
		if ferr != nil {
			slotErrs = append(slotErrs, SlotError{Slot: i, URL: p.ImageURLs[i], Err: ferr})
			c.logger.Warn("slot failed", slog.String("id", p.ID), slog.Int("slot", i), slog.String("error", ferr.Error()))
			continue
		}
		fitted := coverFit(img, slot.W, slot.H, slot.Anchor)
		base = imaging.Overlay(base, fitted, image.Pt(slot.X, slot.Y), 1.0)
	}

	final := c.drawPrice(base, p.DisplayPrice(), p.State())

	dir := filepath.Join(c.outputDir, strings.ToLower(market.Code))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", slotErrs, fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}
	filename := fmt.Sprintf("ad_%s.jpg", p.ID)
	path := filepath.Join(dir, filename)
	if err := imaging.Save(final, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", slotErrs, fmt.Errorf("failed to save creative %s: %w", path, err)
	}
	return path, slotErrs, nil
}

// loadTemplate opens the background template, or substitutes a plain white
// canvas of the configured size when the asset is missing.
func (c *Compositor) loadTemplate() *image.NRGBA {
	img, err := imaging.Open(c.layout.TemplatePath)
	if err != nil {
		c.logger.Info("template not found, using blank canvas", slog.String("path", c.layout.TemplatePath))
		return imaging.New(c.layout.CanvasW, c.layout.CanvasH, color.NRGBA{255, 255, 255, 255})
	}
	return imaging.Clone(img)
}

func (c *Compositor) fetchImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image %s: status code %d", url, res.StatusCode)
	}
	img, err := imaging.Decode(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", url, err)
	}
	return img, nil
}

// coverFit scales src so it fully covers a w x h rectangle, then crops the
// overflow. The crop window is horizontally centered; anchor picks the
// vertical window (0 keeps the top edge, 1 the bottom, 0.5 centers).
func coverFit(src image.Image, w, h int, anchor float64) *image.NRGBA {
	sw := src.Bounds().Dx()
	sh := src.Bounds().Dy()
	if sw == 0 || sh == 0 {
		return imaging.New(w, h, color.NRGBA{})
	}
	scale := math.Max(float64(w)/float64(sw), float64(h)/float64(sh))
	rw := int(math.Ceil(float64(sw) * scale))
	rh := int(math.Ceil(float64(sh) * scale))
	resized := imaging.Resize(src, rw, rh, imaging.Lanczos)
	x0 := (rw - w) / 2
	y0 := int(math.Round(float64(rh-h) * anchor))
	return imaging.Crop(resized, image.Rect(x0, y0, x0+w, y0+h))
}

// drawPrice draws the optional outline box and the price text, both in the
// state's color, with the text centered on the configured anchor point.
func (c *Compositor) drawPrice(base *image.NRGBA, price string, state PriceState) image.Image {
	pb := c.layout.Price
	dc := gg.NewContextForImage(base)

	col := pb.Color
	if state == PriceStateSale {
		col = pb.SaleColor
	}
	dc.SetHexColor(col)

	if box := pb.Box; box != nil {
		dc.SetLineWidth(box.LineWidth)
		dc.DrawRectangle(float64(box.X), float64(box.Y), float64(box.W), float64(box.H))
		dc.Stroke()
		dc.SetHexColor(col)
	}

	if err := dc.LoadFontFace(c.layout.FontPath, pb.FontSize); err != nil {
		// Size fidelity is not guaranteed with the builtin face.
		c.logger.Info("font not found, using builtin face", slog.String("path", c.layout.FontPath))
		dc.SetFontFace(basicfont.Face7x13)
	}
	dc.DrawStringAnchored(price, float64(pb.X), float64(pb.Y), 0.5, 0.5)

	return dc.Image()
}

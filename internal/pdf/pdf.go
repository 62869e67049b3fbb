// Package pdf turns Markdown reports into printable documents: goldmark renders the
// HTML, a headless Chrome prints it.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrUnavailable means no Chrome or Chromium binary was found.
var ErrUnavailable = errors.New("PDF generation requires Chrome or Chromium; install one or set it on PATH")

const style = `<style>
@page { size: A4; margin: 15mm; }
body { font-family: Arial, sans-serif; font-size: 10px; line-height: 1.3; }
h1 { color: #2c3e50; font-size: 16px; border-bottom: 1px solid #3498db; padding-bottom: 5px; margin: 0 0 10px 0; }
h2 { color: #34495e; font-size: 12px; margin: 15px 0 8px 0; }
table { width: 100%; border-collapse: collapse; margin: 8px 0 15px 0; font-size: 9px; }
th, td { border: 1px solid #bdc3c7; padding: 4px 6px; text-align: left; vertical-align: top; }
th { background-color: #ecf0f1; font-weight: bold; }
tr:nth-child(even) { background-color: #f8f9fa; }
p { margin: 5px 0; }
</style>`

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// HTML renders markdown into a standalone page with the print stylesheet.
func HTML(src string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(src), &body); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return "<!DOCTYPE html><html><head><meta charset=\"utf-8\">" + style +
		"</head><body>" + body.String() + "</body></html>", nil
}

// Available reports whether a browser binary can be found. Nothing is downloaded.
func Available() bool {
	_, ok := launcher.LookPath()
	return ok
}

// Converter holds one headless browser for a batch of documents.
type Converter struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewConverter(ctx context.Context) (*Converter, error) {
	bin, ok := launcher.LookPath()
	if !ok {
		return nil, ErrUnavailable
	}
	l := launcher.New().Bin(bin).Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	return &Converter{launcher: l, browser: browser}, nil
}

// Convert renders markdown and writes the printed PDF to path.
func (c *Converter) Convert(src, path string) error {
	doc, err := HTML(src)
	if err != nil {
		return err
	}
	page, err := c.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(doc); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return fmt.Errorf("print to PDF: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return fmt.Errorf("read PDF stream: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Converter) Close() error {
	err := c.browser.Close()
	c.launcher.Cleanup()
	return err
}

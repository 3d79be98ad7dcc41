package types

import "time"

// HTTPConfig holds shared HTTP settings for requests to the platform API.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent overrides the randomly chosen browser User-Agent when set.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`

	// MaxRetries is the number of back-off retries on HTTP 429. Zero disables
	// retries: any failure aborts the run.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// APIConfig holds settings for the platform API client.
type APIConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the versioned API root (e.g. "https://api.e-queo.online/v40").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// AuthToken is the bearer token copied from the browser session. It
	// expires an hour after it was issued.
	AuthToken string `json:"-" yaml:"-"`

	// ModuleID is the course module taken from the address bar.
	ModuleID string `json:"module_id" yaml:"module_id"`
}

// OutputFormat names one of the rendered document formats.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "md"
	FormatHTML     OutputFormat = "html"
	FormatPDF      OutputFormat = "pdf"
)

// Extension returns the file extension written for the format.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatHTML:
		return ".htm"
	case FormatPDF:
		return ".pdf"
	default:
		return ".md"
	}
}

// ContentType returns the MIME type of the format.
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// RenderConfig holds settings for the Markdown to HTML stage.
type RenderConfig struct {
	// TOCTitle is the heading shown above the table of contents.
	TOCTitle string `json:"toc_title" yaml:"toc_title"`

	// TOCDepth is the deepest heading level listed in the table of contents.
	TOCDepth int `json:"toc_depth" yaml:"toc_depth"`

	// StyleSheet is an optional CSS file inlined into the HTML document and
	// passed to the PDF renderer.
	StyleSheet string `json:"style_sheet,omitempty" yaml:"style_sheet,omitempty"`
}

// PDFBackend identifies the HTML-to-PDF tool.
type PDFBackend string

const (
	BackendChrome      PDFBackend = "chrome"
	BackendWkhtmltopdf PDFBackend = "wkhtmltopdf"
)

// PDFConfig holds page layout and backend settings for the PDF stage.
type PDFConfig struct {
	Backend PDFBackend `json:"backend" yaml:"backend"`

	// Margins in millimetres.
	MarginTop    float64 `json:"margin_top" yaml:"margin_top"`
	MarginBottom float64 `json:"margin_bottom" yaml:"margin_bottom"`
	MarginLeft   float64 `json:"margin_left" yaml:"margin_left"`
	MarginRight  float64 `json:"margin_right" yaml:"margin_right"`

	// Zoom normalises the px/dpi ratio so every document prints at the same scale.
	Zoom float64 `json:"zoom" yaml:"zoom"`

	FooterFontName string  `json:"footer_font_name" yaml:"footer_font_name"`
	FooterFontSize float64 `json:"footer_font_size" yaml:"footer_font_size"`
	FooterSpacing  float64 `json:"footer_spacing" yaml:"footer_spacing"`

	// StyleSheet is a user style sheet applied on top of the document.
	StyleSheet string `json:"style_sheet,omitempty" yaml:"style_sheet,omitempty"`

	// ChromePath overrides the Chrome binary used by the chrome backend.
	ChromePath string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`

	// WkhtmltopdfPath is the local wkhtmltopdf binary.
	WkhtmltopdfPath string `json:"wkhtmltopdf_path,omitempty" yaml:"wkhtmltopdf_path,omitempty"`

	// ContainerImage runs wkhtmltopdf inside docker or podman when set.
	ContainerImage string `json:"container_image,omitempty" yaml:"container_image,omitempty"`
}

// DefaultPDFConfig returns the page layout the exporter has always used.
func DefaultPDFConfig() PDFConfig {
	return PDFConfig{
		Backend:         BackendChrome,
		MarginTop:       16,
		MarginBottom:    20,
		MarginLeft:      20,
		MarginRight:     20,
		Zoom:            0.6112,
		FooterFontName:  "Roboto",
		FooterFontSize:  10,
		FooterSpacing:   5,
		WkhtmltopdfPath: "wkhtmltopdf",
	}
}

// ExportConfig holds settings for a pipeline run.
type ExportConfig struct {
	// OutputDir is the base directory for md/, html/, pdf/ and index/.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Formats lists the outputs to produce. Markdown is always written.
	Formats []OutputFormat `json:"formats" yaml:"formats"`

	// ProgramIDs restricts the run to the listed programs. Empty means all.
	ProgramIDs []int64 `json:"program_ids,omitempty" yaml:"program_ids,omitempty"`
}

// Wants reports whether format f is requested.
func (c ExportConfig) Wants(f OutputFormat) bool {
	if f == FormatMarkdown {
		return true
	}
	for _, g := range c.Formats {
		if g == f {
			return true
		}
	}
	return false
}

// CatalogConfig holds settings for the run catalogue.
type CatalogConfig struct {
	// Path is the SQLite database file (default output/index/catalog.db).
	Path string `json:"path" yaml:"path"`

	// Disabled turns off recording.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// PublishConfig holds settings for mirroring outputs to Cloud Storage.
type PublishConfig struct {
	GCSBucket       string `json:"gcs_bucket,omitempty" yaml:"gcs_bucket,omitempty"`
	GCSPrefix       string `json:"gcs_prefix,omitempty" yaml:"gcs_prefix,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`
}

// Enabled reports whether a bucket is configured.
func (c PublishConfig) Enabled() bool {
	return c.GCSBucket != ""
}

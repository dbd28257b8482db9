package insight

// Config contains extraction sidecar settings.
//   - BaseURL: root of the sidecar HTTP API
//   - Timeout: per-call deadline in seconds; a timeout surfaces as an
//     upstream error, never a hang
type Config struct {
	BaseURL string `env:"EXTRACTOR_BASE_URL" envDefault:"http://localhost:18081"`
	Timeout int    `env:"EXTRACTOR_TIMEOUT"  envDefault:"10"`
}

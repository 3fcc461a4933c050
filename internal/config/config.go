package config

import (
	"os"
	"strconv"
	"time"
)

// MinIOConfig holds optional S3-compatible object storage settings. When
// Endpoint is empty the service stores artifacts on the local filesystem.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// TemplateConfig locates one immutable template file and its field map.
type TemplateConfig struct {
	Path     string
	FieldMap string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port    string
	BaseURL string

	// APIKey is the shared secret gating the generate endpoint. An empty
	// value is a server misconfiguration reported per request, never a
	// silent auth bypass.
	APIKey string

	// RetentionMS is how long generated artifacts and their download
	// tokens stay valid, in milliseconds.
	RetentionMS int

	TemplatesDir string
	OutputDir    string

	ExcelTemplate TemplateConfig
	PDFTemplate   TemplateConfig

	// DumpPDFFields logs the PDF template's field list at startup and
	// flags field-map entries absent from the template.
	DumpPDFFields bool

	MinIO MinIOConfig
}

// Retention returns the artifact retention window as a duration.
func (c *AppConfig) Retention() time.Duration {
	return time.Duration(c.RetentionMS) * time.Millisecond
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:         getEnv("PORT", "3000"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:3000"),
		APIKey:       getEnv("API_KEY", ""),
		RetentionMS:  getEnvInt("RETENTION_MS", 300000),
		TemplatesDir: getEnv("TEMPLATES_DIR", "templates"),
		OutputDir:    getEnv("OUTPUT_DIR", "public"),
		ExcelTemplate: TemplateConfig{
			Path:     getEnv("EXCEL_TEMPLATE", "modele-lmnp.xlsx"),
			FieldMap: getEnv("EXCEL_FIELDMAP", "configs/fieldmaps/excel-lmnp-v1.yaml"),
		},
		PDFTemplate: TemplateConfig{
			Path:     getEnv("PDF_TEMPLATE", "2031-sd_5015.pdf"),
			FieldMap: getEnv("PDF_FIELDMAP", "configs/fieldmaps/pdf-cerfa2031-v1.yaml"),
		},
		DumpPDFFields: getEnvBool("DUMP_PDF_FIELDS", false),
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

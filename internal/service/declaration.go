package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/filler"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/reaper"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/storage"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/token"
)

var (
	ErrDeclarationIDRequired = errors.New("declarationId is required")
	ErrDataRequired          = errors.New("data is required")
	ErrInvalidDeclarationID  = errors.New("declarationId must be a short alphanumeric/hyphen token")
	ErrTokenNotFound         = errors.New("download token not found")
	ErrTokenExpired          = errors.New("download token expired")
	ErrKindMismatch          = errors.New("artifact kind mismatch")
)

// GenerationResult carries the two public download URLs returned to the
// client.
type GenerationResult struct {
	PDFURL   string `json:"pdfUrl"`
	ExcelURL string `json:"excelUrl"`
}

// Download is a token-authenticated artifact stream. The caller owns
// Content and must close it.
type Download struct {
	Content     io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// DeclarationService defines the use cases of the declaration pipeline.
type DeclarationService interface {
	// Generate validates the request, fills both templates, registers a
	// download token per artifact and schedules both for deletion after
	// the retention window.
	Generate(ctx context.Context, req model.GenerationRequest) (*GenerationResult, error)

	// Download resolves a token to its artifact stream, enforcing expiry
	// and kind matching.
	Download(ctx context.Context, kind model.ArtifactKind, tok string) (*Download, error)
}

// declarationService is a concrete implementation of DeclarationService.
type declarationService struct {
	excel     filler.Filler
	pdf       filler.Filler
	registry  token.Registry
	reaper    reaper.Scheduler
	store     storage.Storage
	baseURL   string
	retention time.Duration
	log       *zap.Logger
}

// NewDeclarationService constructs a new DeclarationService.
func NewDeclarationService(
	excel, pdf filler.Filler,
	registry token.Registry,
	rp reaper.Scheduler,
	store storage.Storage,
	baseURL string,
	retention time.Duration,
	log *zap.Logger,
) DeclarationService {
	return &declarationService{
		excel:     excel,
		pdf:       pdf,
		registry:  registry,
		reaper:    rp,
		store:     store,
		baseURL:   strings.TrimRight(baseURL, "/"),
		retention: retention,
		log:       log,
	}
}

var tracer = otel.Tracer("backend-lmnp/service")

func (s *declarationService) Generate(ctx context.Context, req model.GenerationRequest) (*GenerationResult, error) {
	if req.DeclarationID == "" {
		return nil, ErrDeclarationIDRequired
	}
	if len(req.Data) == 0 {
		return nil, ErrDataRequired
	}
	if !model.ValidDeclarationID(req.DeclarationID) {
		return nil, ErrInvalidDeclarationID
	}

	ctx, span := tracer.Start(ctx, "declaration.generate")
	span.SetAttributes(attribute.String("declaration.id", req.DeclarationID))
	defer span.End()

	// The two fills are independent; on a failure of the second, the
	// first artifact is deliberately left to its own reaper timer rather
	// than rolled back.
	excelArt, err := s.excel.Fill(ctx, req.DeclarationID, req.Data)
	if err != nil {
		return nil, fmt.Errorf("generate excel: %w", err)
	}
	s.reaper.Schedule(excelArt.Key, s.retention)

	pdfArt, err := s.pdf.Fill(ctx, req.DeclarationID, req.Data)
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	s.reaper.Schedule(pdfArt.Key, s.retention)

	excelTok, err := s.registry.Register(excelArt.Key, excelArt.Kind)
	if err != nil {
		return nil, fmt.Errorf("register excel token: %w", err)
	}
	pdfTok, err := s.registry.Register(pdfArt.Key, pdfArt.Kind)
	if err != nil {
		return nil, fmt.Errorf("register pdf token: %w", err)
	}

	s.log.Info("declaration generated",
		zap.String("declaration_id", req.DeclarationID),
		zap.Int64("excel_bytes", excelArt.Size),
		zap.Int64("pdf_bytes", pdfArt.Size),
	)

	return &GenerationResult{
		PDFURL:   s.downloadURL(model.ArtifactPDF, pdfTok),
		ExcelURL: s.downloadURL(model.ArtifactExcel, excelTok),
	}, nil
}

func (s *declarationService) Download(ctx context.Context, kind model.ArtifactKind, tok string) (*Download, error) {
	entry, err := s.registry.Lookup(tok)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenNotFound
	}
	if entry.Kind != kind {
		return nil, ErrKindMismatch
	}

	rc, info, err := s.store.Get(ctx, entry.Key)
	if err != nil {
		// The reaper may have won the race and deleted the file while
		// the token was still alive.
		return nil, fmt.Errorf("stream artifact %s: %w", entry.Key, err)
	}

	return &Download{
		Content:     rc,
		Filename:    path.Base(entry.Key),
		ContentType: entry.Kind.ContentType(),
		Size:        info.Size,
	}, nil
}

func (s *declarationService) downloadURL(kind model.ArtifactKind, tok string) string {
	return fmt.Sprintf("%s/download/%s/%s", s.baseURL, kind, tok)
}

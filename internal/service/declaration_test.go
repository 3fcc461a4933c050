package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/filler"
	fillerMocks "github.com/laboussolefiscale-rgb/backend-lmnp/internal/filler/mocks"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
	reaperMocks "github.com/laboussolefiscale-rgb/backend-lmnp/internal/reaper/mocks"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/storage"
	storeMocks "github.com/laboussolefiscale-rgb/backend-lmnp/internal/storage/mocks"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/token"
	tokenMocks "github.com/laboussolefiscale-rgb/backend-lmnp/internal/token/mocks"
)

const retention = 5 * time.Minute

func newTestService(
	mExcel, mPDF *fillerMocks.MockFiller,
	mReg *tokenMocks.MockRegistry,
	mSched *reaperMocks.MockScheduler,
	mStore *storeMocks.MockStorage,
) DeclarationService {
	return NewDeclarationService(mExcel, mPDF, mReg, mSched, mStore,
		"http://localhost:3000/", retention, zap.NewNop())
}

func artifact(kind model.ArtifactKind, id string) *model.GeneratedArtifact {
	return &model.GeneratedArtifact{
		Kind:      kind,
		Key:       string(kind) + "/" + kind.FileName(id),
		Size:      128,
		CreatedAt: time.Now().UTC(),
	}
}

func TestDeclarationService_Generate(t *testing.T) {
	ctx := context.Background()
	validData := map[string]any{"nom": "Dupont", "annee": float64(2024), "resultatFiscal": float64(1500)}

	tests := []struct {
		name       string
		req        model.GenerationRequest
		setupMocks func(mExcel, mPDF *fillerMocks.MockFiller, mReg *tokenMocks.MockRegistry, mSched *reaperMocks.MockScheduler)
		wantErr    error
		checkRes   func(t *testing.T, res *GenerationResult)
	}{
		{
			name: "happy path",
			req:  model.GenerationRequest{DeclarationID: "abc123", Data: validData},
			setupMocks: func(mExcel, mPDF *fillerMocks.MockFiller, mReg *tokenMocks.MockRegistry, mSched *reaperMocks.MockScheduler) {
				mExcel.On("Fill", mock.Anything, "abc123", validData).Return(artifact(model.ArtifactExcel, "abc123"), nil)
				mPDF.On("Fill", mock.Anything, "abc123", validData).Return(artifact(model.ArtifactPDF, "abc123"), nil)
				mReg.On("Register", "excel/lmnp-abc123.xlsx", model.ArtifactExcel).Return("tok-excel", nil)
				mReg.On("Register", "pdf/cerfa-2031-abc123.pdf", model.ArtifactPDF).Return("tok-pdf", nil)
				mSched.On("Schedule", "excel/lmnp-abc123.xlsx", retention).Return()
				mSched.On("Schedule", "pdf/cerfa-2031-abc123.pdf", retention).Return()
			},
			checkRes: func(t *testing.T, res *GenerationResult) {
				assert.Equal(t, "http://localhost:3000/download/pdf/tok-pdf", res.PDFURL)
				assert.Equal(t, "http://localhost:3000/download/excel/tok-excel", res.ExcelURL)
			},
		},
		{
			name:       "validation - missing declarationId",
			req:        model.GenerationRequest{Data: validData},
			setupMocks: func(_, _ *fillerMocks.MockFiller, _ *tokenMocks.MockRegistry, _ *reaperMocks.MockScheduler) {},
			wantErr:    ErrDeclarationIDRequired,
		},
		{
			name:       "validation - missing data",
			req:        model.GenerationRequest{DeclarationID: "abc123"},
			setupMocks: func(_, _ *fillerMocks.MockFiller, _ *tokenMocks.MockRegistry, _ *reaperMocks.MockScheduler) {},
			wantErr:    ErrDataRequired,
		},
		{
			name:       "validation - unsafe declarationId",
			req:        model.GenerationRequest{DeclarationID: "../etc", Data: validData},
			setupMocks: func(_, _ *fillerMocks.MockFiller, _ *tokenMocks.MockRegistry, _ *reaperMocks.MockScheduler) {},
			wantErr:    ErrInvalidDeclarationID,
		},
		{
			name: "excel fill fails - nothing registered",
			req:  model.GenerationRequest{DeclarationID: "abc123", Data: validData},
			setupMocks: func(mExcel, mPDF *fillerMocks.MockFiller, mReg *tokenMocks.MockRegistry, mSched *reaperMocks.MockScheduler) {
				mExcel.On("Fill", mock.Anything, "abc123", validData).Return(nil, filler.ErrTemplateNotFound)
			},
			wantErr: filler.ErrTemplateNotFound,
		},
		{
			name: "pdf fill fails - excel artifact keeps its reaper timer",
			req:  model.GenerationRequest{DeclarationID: "abc123", Data: validData},
			setupMocks: func(mExcel, mPDF *fillerMocks.MockFiller, mReg *tokenMocks.MockRegistry, mSched *reaperMocks.MockScheduler) {
				mExcel.On("Fill", mock.Anything, "abc123", validData).Return(artifact(model.ArtifactExcel, "abc123"), nil)
				mSched.On("Schedule", "excel/lmnp-abc123.xlsx", retention).Return()
				mPDF.On("Fill", mock.Anything, "abc123", validData).Return(nil, filler.ErrSerialization)
			},
			wantErr: filler.ErrSerialization,
		},
		{
			name: "token registration fails",
			req:  model.GenerationRequest{DeclarationID: "abc123", Data: validData},
			setupMocks: func(mExcel, mPDF *fillerMocks.MockFiller, mReg *tokenMocks.MockRegistry, mSched *reaperMocks.MockScheduler) {
				mExcel.On("Fill", mock.Anything, "abc123", validData).Return(artifact(model.ArtifactExcel, "abc123"), nil)
				mPDF.On("Fill", mock.Anything, "abc123", validData).Return(artifact(model.ArtifactPDF, "abc123"), nil)
				mSched.On("Schedule", mock.Anything, retention).Return()
				mReg.On("Register", "excel/lmnp-abc123.xlsx", model.ArtifactExcel).Return("", errors.New("entropy failure"))
			},
			wantErr: errors.New("entropy failure"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mExcel := &fillerMocks.MockFiller{ArtifactKind: model.ArtifactExcel}
			mPDF := &fillerMocks.MockFiller{ArtifactKind: model.ArtifactPDF}
			mReg := new(tokenMocks.MockRegistry)
			mSched := new(reaperMocks.MockScheduler)
			mStore := new(storeMocks.MockStorage)
			svc := newTestService(mExcel, mPDF, mReg, mSched, mStore)

			tt.setupMocks(mExcel, mPDF, mReg, mSched)

			res, err := svc.Generate(ctx, tt.req)

			if tt.wantErr != nil {
				require.Error(t, err)
				if !errors.Is(err, tt.wantErr) {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
			} else {
				require.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}

			mExcel.AssertExpectations(t)
			mPDF.AssertExpectations(t)
			mReg.AssertExpectations(t)
			mSched.AssertExpectations(t)
		})
	}
}

func TestDeclarationService_Download(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		kind       model.ArtifactKind
		token      string
		setupMocks func(mReg *tokenMocks.MockRegistry, mStore *storeMocks.MockStorage)
		wantErr    error
	}{
		{
			name:  "happy path",
			kind:  model.ArtifactPDF,
			token: "tok-pdf",
			setupMocks: func(mReg *tokenMocks.MockRegistry, mStore *storeMocks.MockStorage) {
				mReg.On("Lookup", "tok-pdf").Return(&model.DownloadToken{
					Token: "tok-pdf", Kind: model.ArtifactPDF, Key: "pdf/cerfa-2031-abc123.pdf",
					ExpiresAt: time.Now().Add(time.Minute),
				}, nil)
				mStore.On("Get", ctx, "pdf/cerfa-2031-abc123.pdf").
					Return(io.NopCloser(strings.NewReader("pdf-bytes")), storage.ObjectInfo{Size: 9}, nil)
			},
		},
		{
			name:  "unknown token",
			kind:  model.ArtifactPDF,
			token: "nope",
			setupMocks: func(mReg *tokenMocks.MockRegistry, _ *storeMocks.MockStorage) {
				mReg.On("Lookup", "nope").Return(nil, token.ErrNotFound)
			},
			wantErr: ErrTokenNotFound,
		},
		{
			name:  "expired token",
			kind:  model.ArtifactExcel,
			token: "old",
			setupMocks: func(mReg *tokenMocks.MockRegistry, _ *storeMocks.MockStorage) {
				mReg.On("Lookup", "old").Return(nil, token.ErrExpired)
			},
			wantErr: ErrTokenExpired,
		},
		{
			name:  "kind mismatch on a valid token",
			kind:  model.ArtifactExcel,
			token: "tok-pdf",
			setupMocks: func(mReg *tokenMocks.MockRegistry, _ *storeMocks.MockStorage) {
				mReg.On("Lookup", "tok-pdf").Return(&model.DownloadToken{
					Token: "tok-pdf", Kind: model.ArtifactPDF, Key: "pdf/cerfa-2031-abc123.pdf",
					ExpiresAt: time.Now().Add(time.Minute),
				}, nil)
			},
			wantErr: ErrKindMismatch,
		},
		{
			name:  "file reaped before token expiry",
			kind:  model.ArtifactPDF,
			token: "tok-pdf",
			setupMocks: func(mReg *tokenMocks.MockRegistry, mStore *storeMocks.MockStorage) {
				mReg.On("Lookup", "tok-pdf").Return(&model.DownloadToken{
					Token: "tok-pdf", Kind: model.ArtifactPDF, Key: "pdf/cerfa-2031-abc123.pdf",
					ExpiresAt: time.Now().Add(time.Minute),
				}, nil)
				mStore.On("Get", ctx, "pdf/cerfa-2031-abc123.pdf").
					Return(nil, storage.ObjectInfo{}, os.ErrNotExist)
			},
			wantErr: os.ErrNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mReg := new(tokenMocks.MockRegistry)
			mStore := new(storeMocks.MockStorage)
			svc := newTestService(nil, nil, mReg, new(reaperMocks.MockScheduler), mStore)

			tt.setupMocks(mReg, mStore)

			dl, err := svc.Download(ctx, tt.kind, tt.token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				defer dl.Content.Close()
				assert.Equal(t, "cerfa-2031-abc123.pdf", dl.Filename)
				assert.Equal(t, "application/pdf", dl.ContentType)
				b, err := io.ReadAll(dl.Content)
				require.NoError(t, err)
				assert.Equal(t, "pdf-bytes", string(b))
			}

			mReg.AssertExpectations(t)
			mStore.AssertExpectations(t)
		})
	}
}

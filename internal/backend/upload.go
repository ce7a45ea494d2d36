package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultDocumentType = "application/octet-stream"

var ErrNoDocuments = errors.New("no documents to upload")

// Document is a résumé or job description file selected for upload.
type Document struct {
	Filename string
	Content  []byte
	Type     string
}

// EncodedDocument is the wire form of a Document.
type EncodedDocument struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Type     string `json:"type"`
}

// FileStatus is the per-file outcome of an upload.
type FileStatus struct {
	Filename string `mapstructure:"filename"`
	Success  bool   `mapstructure:"success"`
	Message  string `mapstructure:"message"`
}

type UploadResult struct {
	Success bool
	Files   []FileStatus
}

func (r *UploadResult) Failed() []FileStatus {
	var failed []FileStatus
	for _, f := range r.Files {
		if !f.Success {
			failed = append(failed, f)
		}
	}
	return failed
}

func (r *UploadResult) Succeeded() []FileStatus {
	var ok []FileStatus
	for _, f := range r.Files {
		if f.Success {
			ok = append(ok, f)
		}
	}
	return ok
}

// ReadDocuments loads files from disk. The type is guessed from the extension.
func ReadDocuments(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		kind := mime.TypeByExtension(filepath.Ext(path))
		if kind == "" {
			kind = defaultDocumentType
		}

		docs = append(docs, Document{
			Filename: filepath.Base(path),
			Content:  content,
			Type:     kind,
		})
	}
	return docs, nil
}

// EncodeDocuments base64 encodes documents concurrently, keeping their order.
func EncodeDocuments(ctx context.Context, docs []Document) ([]EncodedDocument, error) {
	encoded := make([]EncodedDocument, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if doc.Filename == "" {
				return fmt.Errorf("document %d has no filename", i)
			}
			encoded[i] = EncodedDocument{
				Filename: doc.Filename,
				Content:  base64.StdEncoding.EncodeToString(doc.Content),
				Type:     doc.Type,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return encoded, nil
}

type uploadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	UploadedFiles []any  `json:"uploaded_files"`
}

// UploadDocuments sends the files to the matching service, which triggers a new match run.
func (c *Client) UploadDocuments(ctx context.Context, docs []Document) (*UploadResult, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	encoded, err := EncodeDocuments(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("encode documents: %w", err)
	}

	var response uploadResponse
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(uploadCVsPath), encoded, &response); err != nil {
		return nil, fmt.Errorf("upload cvs: %w", err)
	}

	result, err := response.result(docs)
	if err != nil {
		return nil, err
	}

	c.logger.Info("documents uploaded",
		zap.Bool("success", result.Success),
		zap.Int("uploaded", len(result.Succeeded())),
		zap.Int("failed", len(result.Failed())),
	)

	return result, nil
}

// result maps the reported files back onto the request. Files the service does
// not mention inherit the overall success flag.
func (r uploadResponse) result(docs []Document) (*UploadResult, error) {
	reported := make(map[string]FileStatus, len(r.UploadedFiles))

	for i, raw := range r.UploadedFiles {
		switch v := raw.(type) {
		case string:
			reported[v] = FileStatus{Filename: v, Success: r.Success}
		case map[string]any:
			status := FileStatus{Success: r.Success}
			decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				WeaklyTypedInput: true,
				Result:           &status,
			})
			if err != nil {
				return nil, err
			}
			if err := decoder.Decode(v); err != nil {
				return nil, fmt.Errorf("decode uploaded file %d: %w", i, err)
			}
			if msg, ok := v["error"].(string); ok && status.Message == "" {
				status.Message = msg
			}
			if status.Filename != "" {
				reported[status.Filename] = status
			}
		}
	}

	result := &UploadResult{Success: r.Success}
	for _, doc := range docs {
		status, ok := reported[doc.Filename]
		if !ok {
			status = FileStatus{Filename: doc.Filename, Success: r.Success}
		}
		if !status.Success && status.Message == "" {
			status.Message = r.Message
		}
		result.Files = append(result.Files, status)
	}

	return result, nil
}

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// Synchronous Vision requests accept at most this many bytes.
const MaxFileSizeBytes = 20 * 1024 * 1024

// VisionExtractor reads invoices with Cloud Vision document text detection.
type VisionExtractor struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionExtractor uses credentialsFile when set and application default
// credentials otherwise.
func NewVisionExtractor(ctx context.Context, credentialsFile string) (*VisionExtractor, error) {
	const op = "NewVisionExtractor"
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, WrapOCRError(op, err, "create image annotator client")
	}
	return &VisionExtractor{client: client}, nil
}

func (v *VisionExtractor) Close() error {
	return v.client.Close()
}

func (v *VisionExtractor) Extract(ctx context.Context, contentType string, data []byte) (RawInvoice, error) {
	const op = "Extract"
	if len(data) == 0 {
		return RawInvoice{}, WrapOCRError(op, ErrEmptyFile, "")
	}
	if len(data) > MaxFileSizeBytes {
		return RawInvoice{}, WrapOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}
	ext, err := Extension(contentType)
	if err != nil {
		return RawInvoice{}, err
	}

	var text string
	if ext == "pdf" {
		text, err = v.pdfText(ctx, data)
	} else {
		text, err = v.imageText(ctx, data)
	}
	if err != nil {
		return RawInvoice{}, WrapOCRError(op, err, contentType)
	}

	raw := ParseFields(text)
	slog.DebugContext(ctx, "Invoice text extracted",
		"chars", len(text),
		"complete", raw.IsComplete())
	return raw, nil
}

var documentText = []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}}

func (v *VisionExtractor) imageText(ctx context.Context, data []byte) (string, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: data},
			Features: documentText,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrOCRFailed)
	}
	return annotationText(resp.Responses)
}

func (v *VisionExtractor) pdfText(ctx context.Context, data []byte) (string, error) {
	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{Content: data, MimeType: "application/pdf"},
			Features:    documentText,
			// first page only
			Pages: []int32{1},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrOCRFailed)
	}
	file := resp.Responses[0]
	if file.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrOCRFailed, file.Error.Message)
	}
	return annotationText(file.Responses)
}

func annotationText(responses []*visionpb.AnnotateImageResponse) (string, error) {
	var b strings.Builder
	for _, r := range responses {
		if r.Error != nil {
			return "", fmt.Errorf("%w: %s", ErrOCRFailed, r.Error.Message)
		}
		if r.FullTextAnnotation != nil {
			b.WriteString(r.FullTextAnnotation.Text)
			b.WriteString("\n")
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyDocument
	}
	return b.String(), nil
}

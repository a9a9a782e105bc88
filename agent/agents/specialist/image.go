package specialist

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

const (
	imageDownloadTimeout  = 10 * time.Second
	maxSourceImageBytes   = 15 << 20
	imageEditSuccessReply = "Here's your edited image. Want to try another change?"
)

// ImageEditor produces a new image from a source image and an instruction.
type ImageEditor interface {
	Edit(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, string, error)
}

// ObjectUploader stores bytes and returns a public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

type ImageEdit struct {
	base
	editor     ImageEditor
	uploader   ObjectUploader
	httpClient *http.Client
	now        func() time.Time
}

var _ contractx.ToolAgent = (*ImageEdit)(nil)

func NewImageEdit(editor ImageEditor, uploader ObjectUploader, httpClient *http.Client) *ImageEdit {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: imageDownloadTimeout}
	}
	return &ImageEdit{
		base: base{
			capability: contractx.CapabilityImageEdit,
			produces:   []envelopex.Kind{envelopex.KindEditedImage},
		},
		editor:     editor,
		uploader:   uploader,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (a *ImageEdit) Invoke(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := validateRequest(req); err != nil {
		return contractx.AgentResult{}, err
	}

	sourceURL, instruction, ok := envelopex.ParseImageEdit(req.Turn.Message)
	if !ok && req.Turn.AttachmentRef != "" {
		sourceURL, instruction = req.Turn.AttachmentRef, strings.TrimSpace(req.Turn.Message)
		ok = instruction != ""
	}
	if !ok {
		return contractx.AgentResult{}, fmt.Errorf("%w: image edit message must look like %q", contractx.ErrValidation, envelopex.ComposeImageEdit("<url>", "<instruction>"))
	}

	src, mimeType, err := a.download(ctx, sourceURL)
	if err != nil {
		return contractx.AgentResult{}, a.fail("download source: %v", err)
	}

	edited, editedType, err := a.editor.Edit(ctx, src, mimeType, instruction)
	if err != nil {
		return contractx.AgentResult{}, a.fail("edit: %v", err)
	}

	name := a.objectName(editedType)
	url, err := a.uploader.Upload(ctx, name, edited, editedType)
	if err != nil {
		return contractx.AgentResult{}, a.fail("upload %s: %v", name, err)
	}
	if url == sourceURL {
		return contractx.AgentResult{}, a.fail("edited image url equals source url")
	}

	log.Info().Str("source", sourceURL).Str("edited", url).Int("bytes", len(edited)).Msg("image edited")
	return a.result(imageEditSuccessReply, envelopex.NewEditedImage(envelopex.EditedImage{ImageURL: url})), nil
}

func (a *ImageEdit) download(ctx context.Context, url string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, imageDownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return nil, "", fmt.Errorf("content type %q is not an image", resp.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxSourceImageBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", maxSourceImageBytes)
	}
	return data, mediaType, nil
}

// objectName follows edited_image_<timestamp>_<6 hex>.<ext>.
func (a *ImageEdit) objectName(mimeType string) string {
	var suffix [3]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("edited_image_%s_%s.%s",
		a.now().UTC().Format("20060102_150405"),
		hex.EncodeToString(suffix[:]),
		extensionFor(mimeType))
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
